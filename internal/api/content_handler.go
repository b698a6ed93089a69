package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/zizcon/zizcon-api/internal/directus"
	"github.com/zizcon/zizcon-api/internal/models"
)

var postFields = []string{
	"id", "status", "sort", "user_created", "user_updated",
	"date_created", "date_updated", "title", "content",
	"header.id", "header.filename_download",
}

var galleryFields = []string{
	"id", "status", "sort", "date_updated", "title",
	"header.id", "header.filename_download",
	"gallery_files.id", "gallery_files.gallery_id",
	"gallery_files.directus_files_id.id",
	"gallery_files.directus_files_id.filename_download",
}

var rulesFields = []string{
	"id", "status", "sort", "date_updated", "title", "content",
	"header.id", "header.filename_download",
}

// ContentHandler handles CMS read-through endpoints
type ContentHandler struct {
	cms *directus.Client
	log zerolog.Logger
}

// NewContentHandler creates a new ContentHandler
func NewContentHandler(cms *directus.Client, log zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		cms: cms,
		log: log.With().Str("handler", "content").Logger(),
	}
}

// Blog handles GET /api/content/blog
func (h *ContentHandler) Blog(c *gin.Context) {
	var posts []models.BlogPost
	if err := h.cms.Items(c.Request.Context(), "blog", postFields, &posts); err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch blog posts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch blog posts"})
		return
	}
	if posts == nil {
		posts = []models.BlogPost{}
	}
	c.JSON(http.StatusOK, gin.H{"posts": posts})
}

// News handles GET /api/content/news
func (h *ContentHandler) News(c *gin.Context) {
	var news []models.NewsItem
	if err := h.cms.Items(c.Request.Context(), "news", postFields, &news); err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch news")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch news"})
		return
	}
	if news == nil {
		news = []models.NewsItem{}
	}
	c.JSON(http.StatusOK, gin.H{"news": news})
}

// Gallery handles GET /api/content/gallery
func (h *ContentHandler) Gallery(c *gin.Context) {
	var galleries []models.Gallery
	if err := h.cms.Items(c.Request.Context(), "gallery", galleryFields, &galleries); err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch galleries")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch galleries"})
		return
	}
	if galleries == nil {
		galleries = []models.Gallery{}
	}
	c.JSON(http.StatusOK, gin.H{"galleries": galleries})
}

// Rules handles GET /api/content/pravidla-ucasti
func (h *ContentHandler) Rules(c *gin.Context) {
	var rules []models.RulesSection
	if err := h.cms.Items(c.Request.Context(), "pravidla_ucasti", rulesFields, &rules); err != nil {
		h.log.Error().Err(err).Msg("Failed to fetch rules")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch rules"})
		return
	}
	if rules == nil {
		rules = []models.RulesSection{}
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// Image handles GET /api/content/image
//
// Redirects to the CMS asset URL with the requested transformations applied
func (h *ContentHandler) Image(c *gin.Context) {
	imageID := c.Query("id")
	if imageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing image ID"})
		return
	}

	opts := &directus.AssetOptions{
		Width:   intQuery(c, "width"),
		Height:  intQuery(c, "height"),
		Quality: intQuery(c, "quality"),
		Fit:     c.Query("fit"),
	}

	c.Redirect(http.StatusFound, h.cms.AssetURL(imageID, opts))
}

func intQuery(c *gin.Context, name string) int {
	value := c.Query(name)
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return parsed
}
