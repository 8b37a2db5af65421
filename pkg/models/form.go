package models

const (
	FormContact    = "contact"
	FormNewsletter = "newsletter"
)

type FormSubmission struct {
	Base `bson:",inline"`
	Form string            `json:"form" bson:"form"`
	Data map[string]string `json:"data" bson:"data"`
}
