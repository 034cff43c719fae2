package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleManager = "manager"
	RoleStaff   = "staff"
)

// User struct matches the document in MongoDB
type User struct {
	UserID    string    `bson:"userID" json:"userID"`
	Email     string    `bson:"email" json:"email"`
	Name      string    `bson:"name" json:"name"`
	Password  string    `bson:"password" json:"-"`
	Role      string    `bson:"role" json:"role"` // manager, staff
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func NewUserID() string {
	return fmt.Sprintf("USR-%s", strings.ToUpper(uuid.New().String()[:8]))
}
