package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
	"site-cms/pkg/store/memory"
)

func TestForms_StoresSubmissions(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	forms := services.NewForms(st.FormSubmissions(), logger.NewNop(), metrics.New())

	sub, err := forms.SubmitContact(ctx, services.ContactForm{
		Name: " Ann ", Email: "ann@example.com", Subject: "Hi", Message: "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, models.FormContact, sub.Form)
	assert.Equal(t, "Ann", sub.Data["name"])

	_, err = forms.SubmitNewsletter(ctx, services.NewsletterForm{Email: "ann@example.com", Consent: "on"})
	require.NoError(t, err)

	n, err := st.FormSubmissions().Count(ctx, store.Where{"form": models.FormNewsletter})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := st.FormSubmissions().FindByID(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hello there", stored.Data["message"])
}
