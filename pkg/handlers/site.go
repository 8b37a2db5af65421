package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/render"
	"site-cms/pkg/seo"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

const (
	homeSlug        = "home"
	themeCookieAge  = 365 * 24 * time.Hour
	formInvalidText = "Please fill in every field with a valid email address."
)

// SiteHandler renders the public pages.
type SiteHandler struct {
	content *services.Content
	forms   *services.Forms
	seo     *seo.Generator
	log     logger.Logger
}

func NewSiteHandler(content *services.Content, forms *services.Forms, gen *seo.Generator, log logger.Logger) *SiteHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &SiteHandler{content: content, forms: forms, seo: gen, log: log}
}

// view loads what every page shares. A failing global is logged and the
// layout renders without it.
func (h *SiteHandler) view(c *gin.Context) render.View {
	v := render.View{
		Meta:   h.seo.Static(h.seo.SiteName(), ""),
		Theme:  render.ThemeFromRequest(c.Request),
		Path:   c.Request.URL.Path,
		User:   CurrentUser(c),
		Header: &models.Header{},
		Footer: &models.Footer{},
	}

	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() error {
		header, err := services.GetCachedGlobal[models.Header](ctx, h.content, models.GlobalHeader)
		if err != nil {
			return fmt.Errorf("header: %w", err)
		}
		v.Header = header
		return nil
	})
	g.Go(func() error {
		footer, err := services.GetCachedGlobal[models.Footer](ctx, h.content, models.GlobalFooter)
		if err != nil {
			return fmt.Errorf("footer: %w", err)
		}
		v.Footer = footer
		return nil
	})
	if err := g.Wait(); err != nil {
		h.log.Warn("load globals failed", logger.Error(err))
	}
	return v
}

func (h *SiteHandler) Home(c *gin.Context) {
	h.renderPage(c, homeSlug)
}

// Fallback serves pages by slug for any path no route claimed. Everything
// else goes through the redirect lookup to the not-found page.
func (h *SiteHandler) Fallback(c *gin.Context) {
	path := c.Request.URL.Path
	if strings.HasPrefix(path, "/api/") {
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		h.NotFound(c)
		return
	}
	slug := strings.Trim(path, "/")
	if slug == "" || strings.Contains(slug, "/") {
		h.NotFound(c)
		return
	}
	h.renderPage(c, slug)
}

func (h *SiteHandler) renderPage(c *gin.Context, slug string) {
	page, err := h.content.GetCachedPage(c.Request.Context(), slug)
	if err != nil {
		h.fail(c, err)
		return
	}
	v := h.view(c)
	v.Page = page
	v.Meta = h.seo.GenerateMeta(seo.FromPage(page))
	v.HeaderTheme = render.HeaderTheme(page)
	c.HTML(http.StatusOK, "page.html", v)
}

func (h *SiteHandler) Post(c *gin.Context) {
	post, err := h.content.GetCachedPost(c.Request.Context(), c.Param("slug"))
	if err != nil {
		h.fail(c, err)
		return
	}
	v := h.view(c)
	v.Post = post
	v.Meta = h.seo.GenerateMeta(seo.FromPost(post))
	v.HeaderTheme = render.ThemeDark
	c.HTML(http.StatusOK, "post.html", v)
}

func (h *SiteHandler) Posts(c *gin.Context) {
	h.renderPosts(c, 1, h.seo.SiteName()+" Posts")
}

// PostsPage serves /posts/page/:pageNumber. Anything but an integer page
// within range is not found.
func (h *SiteHandler) PostsPage(c *gin.Context) {
	raw := c.Param("pageNumber")
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 || !(store.Query{Limit: services.PostsPerPage, Page: page}).InRange() {
		h.NotFound(c)
		return
	}
	h.renderPosts(c, page, fmt.Sprintf("%s Posts Page %s", h.seo.SiteName(), raw))
}

func (h *SiteHandler) renderPosts(c *gin.Context, page int, title string) {
	res, err := h.content.ListPosts(c.Request.Context(), page)
	if err != nil {
		h.fail(c, err)
		return
	}
	if page > 1 && page > res.TotalPages {
		h.NotFound(c)
		return
	}

	v := h.view(c)
	v.Meta = h.seo.Static(title, "")
	v.Posts = res.Docs
	v.PageRange = render.PageRange(models.CollectionPosts, res.Page, services.PostsPerPage, res.TotalDocs)
	if res.TotalPages > 1 {
		p := render.NewPagination(res.Page, res.TotalPages, c.Request.URL.Path, render.Hrefs{})
		v.Pagination = &p
	}
	c.HTML(http.StatusOK, "posts.html", v)
}

func (h *SiteHandler) Contact(c *gin.Context) {
	v := h.contactView(c)
	session := sessions.Default(c)
	if flashes := session.Flashes(); len(flashes) > 0 {
		v.Flash, _ = flashes[0].(string)
		_ = session.Save()
	}
	c.HTML(http.StatusOK, "contact.html", v)
}

func (h *SiteHandler) contactView(c *gin.Context) render.View {
	v := h.view(c)
	v.Meta = h.seo.Static("Contact Us", "Get in touch with our team")
	return v
}

func (h *SiteHandler) SubmitContact(c *gin.Context) {
	var form services.ContactForm
	if err := c.ShouldBind(&form); err != nil {
		v := h.contactView(c)
		v.Error = formInvalidText
		v.Form = map[string]string{"name": form.Name, "email": form.Email, "subject": form.Subject, "message": form.Message}
		c.HTML(http.StatusBadRequest, "contact.html", v)
		return
	}
	if _, err := h.forms.SubmitContact(c.Request.Context(), form); err != nil {
		h.fail(c, err)
		return
	}
	h.flashRedirect(c, "Thanks for reaching out! We'll get back to you soon.")
}

func (h *SiteHandler) SubmitNewsletter(c *gin.Context) {
	var form services.NewsletterForm
	if err := c.ShouldBind(&form); err != nil {
		v := h.contactView(c)
		v.Error = "Please enter a valid email address and agree to receive emails."
		c.HTML(http.StatusBadRequest, "contact.html", v)
		return
	}
	if _, err := h.forms.SubmitNewsletter(c.Request.Context(), form); err != nil {
		h.fail(c, err)
		return
	}
	h.flashRedirect(c, "You're subscribed!")
}

func (h *SiteHandler) flashRedirect(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message)
	if err := session.Save(); err != nil {
		h.log.Warn("save session failed", logger.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/contact")
}

// SetTheme stores the chosen colour scheme. "auto" forgets it so the system
// preference applies again.
func (h *SiteHandler) SetTheme(c *gin.Context) {
	theme := c.PostForm("theme")
	c.SetSameSite(http.SameSiteLaxMode)
	switch {
	case theme == render.ThemeAuto:
		c.SetCookie(render.ThemeCookie, "", -1, "/", "", false, false)
	case render.ValidTheme(theme):
		c.SetCookie(render.ThemeCookie, theme, int(themeCookieAge.Seconds()), "/", "", false, false)
	default:
		c.String(http.StatusBadRequest, "unknown theme %q", theme)
		return
	}
	c.Redirect(http.StatusSeeOther, localRedirect(c.PostForm("redirect")))
}

// localRedirect only lets through same-site paths.
func localRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

// NotFound follows a matching redirect, or renders the not-found page.
func (h *SiteHandler) NotFound(c *gin.Context) {
	if h.followRedirect(c) {
		return
	}
	v := h.view(c)
	v.NotFound = true
	v.Meta = h.seo.Static("404 | "+h.seo.SiteName(), "")
	c.HTML(http.StatusNotFound, "notfound.html", v)
}

func (h *SiteHandler) followRedirect(c *gin.Context) bool {
	redirect, err := h.content.FindRedirect(c.Request.Context(), c.Request.URL.Path)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.log.Warn("redirect lookup failed", logger.String("path", c.Request.URL.Path), logger.Error(err))
		}
		return false
	}
	c.Redirect(redirect.Code(), redirect.Destination())
	return true
}

func (h *SiteHandler) fail(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrPageRange) {
		h.NotFound(c)
		return
	}
	if errors.Is(err, context.Canceled) {
		c.Abort()
		return
	}
	_ = c.Error(err)
	c.String(http.StatusInternalServerError, "Something went wrong.")
}
