package services

import (
	"context"
	"fmt"
	"strings"

	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

// ContactForm is posted from the contact page. Every field is required.
type ContactForm struct {
	Name    string `form:"name" json:"name" binding:"required"`
	Email   string `form:"email" json:"email" binding:"required,email"`
	Subject string `form:"subject" json:"subject" binding:"required"`
	Message string `form:"message" json:"message" binding:"required"`
}

// NewsletterForm subscribes an address. The consent checkbox must be ticked.
type NewsletterForm struct {
	Email   string `form:"email" json:"email" binding:"required,email"`
	Consent string `form:"consent" json:"consent" binding:"required"`
}

type Forms struct {
	submissions store.Collection[models.FormSubmission]
	log         logger.Logger
	metrics     *metrics.Metrics
}

func NewForms(submissions store.Collection[models.FormSubmission], log logger.Logger, m *metrics.Metrics) *Forms {
	if log == nil {
		log = logger.NewNop()
	}
	return &Forms{submissions: submissions, log: log, metrics: m}
}

func (f *Forms) SubmitContact(ctx context.Context, form ContactForm) (*models.FormSubmission, error) {
	return f.save(ctx, models.FormContact, map[string]string{
		"name":    strings.TrimSpace(form.Name),
		"email":   strings.TrimSpace(form.Email),
		"subject": strings.TrimSpace(form.Subject),
		"message": strings.TrimSpace(form.Message),
	})
}

func (f *Forms) SubmitNewsletter(ctx context.Context, form NewsletterForm) (*models.FormSubmission, error) {
	return f.save(ctx, models.FormNewsletter, map[string]string{
		"email":   strings.TrimSpace(form.Email),
		"consent": "true",
	})
}

func (f *Forms) save(ctx context.Context, form string, data map[string]string) (*models.FormSubmission, error) {
	sub := &models.FormSubmission{Form: form, Data: data}
	if err := f.submissions.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("save %s submission: %w", form, err)
	}
	f.metrics.FormSubmitted(form)
	f.log.Info("form submitted",
		logger.String("form", form),
		logger.String("id", sub.ID),
		logger.String("email", data["email"]),
	)
	return sub, nil
}
