package models

import "net/http"

type RedirectTarget struct {
	Type      string     `json:"type" bson:"type"`
	Reference *Reference `json:"reference,omitempty" bson:"reference,omitempty"`
	URL       string     `json:"url,omitempty" bson:"url,omitempty"`
}

type Redirect struct {
	Base       `bson:",inline"`
	From       string         `json:"from" bson:"from"`
	To         RedirectTarget `json:"to" bson:"to"`
	StatusCode int            `json:"statusCode,omitempty" bson:"statusCode,omitempty"`
}

// Destination is where the redirect points, or "" when it cannot resolve.
func (r Redirect) Destination() string {
	return Link{Type: r.To.Type, Reference: r.To.Reference, URL: r.To.URL}.Href()
}

// Code is the HTTP status to answer with.
func (r Redirect) Code() int {
	switch r.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return r.StatusCode
	}
	return http.StatusTemporaryRedirect
}
