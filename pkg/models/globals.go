package models

import "time"

const (
	GlobalHeader = "header"
	GlobalFooter = "footer"
)

// Header and Footer are singletons stored by slug.
type Header struct {
	NavItems  []NavItem `json:"navItems" bson:"navItems"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type Footer struct {
	NavItems  []NavItem `json:"navItems" bson:"navItems"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
