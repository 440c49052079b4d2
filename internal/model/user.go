package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type User struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name            string             `bson:"name" json:"name"`
	Email           string             `bson:"email" json:"email"`
	PasswordHash    string             `bson:"password" json:"-"`
	Roles           Roles              `bson:"roles" json:"roles"`
	Phone           string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Address         string             `bson:"address,omitempty" json:"address,omitempty"`
	ProfileImage    string             `bson:"profile_image,omitempty" json:"profileImage,omitempty"`
	IsEmailVerified bool               `bson:"is_email_verified" json:"isEmailVerified"`
	IsLocked        bool               `bson:"is_locked" json:"isLocked"`
	IsActive        bool               `bson:"is_active" json:"isActive"`
	ActivityLogs    []ActivityLog      `bson:"activity_logs" json:"activityLogs"`
	CreatedAt       time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updated_at" json:"updatedAt"`
}

// Role is the primary role derived from the role set.
func (u *User) Role() Role {
	return u.Roles.Primary()
}

type ActivityLog struct {
	Action    string    `bson:"action" json:"action"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	IPAddress string    `bson:"ip_address,omitempty" json:"ipAddress,omitempty"`
	UserAgent string    `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
}
