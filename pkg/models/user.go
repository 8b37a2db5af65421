package models

type User struct {
	Base         `bson:",inline"`
	Email        string   `json:"email" bson:"email"`
	Name         string   `json:"name" bson:"name"`
	PasswordHash string   `json:"-" bson:"hash"`
	Roles        []string `json:"roles,omitempty" bson:"roles,omitempty"`
}
