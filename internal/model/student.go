package model

import "time"

// Student represents a student account. Roll number is the login identifier
// and the identity carried inside every FinalAnswerSet.
type Student struct {
	ID           int       `json:"id"`
	RollNo       string    `json:"roll_no"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentIdentity is the subset of student data embedded in answer payloads.
type StudentIdentity struct {
	ID     int    `json:"-"`
	RollNo string `json:"roll_no"`
	Name   string `json:"name"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	RollNo   string `json:"roll_no" binding:"required,min=1,max=32"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}
