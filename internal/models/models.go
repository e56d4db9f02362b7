package models

import (
	"time"
)

const (
	CategoryRAM = "RAM"
	CategoryGPU = "GPU"
	CategoryCPU = "CPU"
	CategoryHDD = "HDD"
)

func ValidCategory(c string) bool {
	switch c {
	case CategoryRAM, CategoryGPU, CategoryCPU, CategoryHDD:
		return true
	}
	return false
}

type Product struct {
	ID          uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string  `gorm:"not null"                 json:"name"`
	Category    string  `gorm:"not null"                 json:"category"`
	Description string  `json:"description"`
	Price       float64 `gorm:"not null"                 json:"price"`
	Stock       int     `gorm:"not null;default:0"       json:"stock"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

func (u *User) IsStaff() bool {
	return u.Role == "admin"
}

// AuditLog rows are append-only. UserID is nullable and set to NULL when the
// user is deleted, so the trail outlives the actor.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"     json:"id"`
	UserID    *uint     `gorm:"index"                        json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:SET NULL" json:"-"`
	Action    string    `gorm:"not null"                     json:"action"`
	Details   string    `json:"details"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"         json:"created_at"`
}

// LoginAttempt tracks failures per (username, ip) pair so one address cannot
// lock an account for everyone else.
type LoginAttempt struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"                 json:"id"`
	Username       string    `gorm:"not null;uniqueIndex:idx_attempt_user_ip" json:"username"`
	IPAddress      string    `gorm:"not null;uniqueIndex:idx_attempt_user_ip" json:"ip_address"`
	FailedAttempts int       `gorm:"not null;default:0"                       json:"failed_attempts"`
	LastAttempt    time.Time `gorm:"autoUpdateTime"                           json:"last_attempt"`
}

// Session owns the cart: Cart holds a JSON map of product id to quantity.
// ExpiresAt slides forward on every authenticated request.
type Session struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Token     string    `gorm:"unique;not null"          json:"token"`
	UserID    uint      `gorm:"index;not null"           json:"user_id"`
	Cart      string    `gorm:"not null;default:'{}'"    json:"-"`
	ExpiresAt time.Time `gorm:"not null"                 json:"expires_at"`
}
