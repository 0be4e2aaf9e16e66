package api

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fintrack-dev/fintrack/internal/categories"
	"github.com/fintrack-dev/fintrack/internal/enrich"
	"github.com/fintrack-dev/fintrack/internal/id"
	"github.com/fintrack-dev/fintrack/internal/importer"
	"github.com/fintrack-dev/fintrack/internal/ingest"
	"github.com/fintrack-dev/fintrack/internal/model"
	"github.com/fintrack-dev/fintrack/internal/store"
)

type transactionDTO struct {
	ID             int64           `json:"id"`
	Hash           string          `json:"hash"`
	ValueDate      string          `json:"value_date"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	Kind           model.Kind      `json:"kind"`
	Category       string          `json:"category"`
	UploadedAt     string          `json:"uploaded_at"`
	LastModifiedAt string          `json:"last_modified_at"`
}

func toDTO(t model.Transaction) transactionDTO {
	return transactionDTO{
		ID:             t.ID,
		Hash:           t.ContentHash,
		ValueDate:      t.ValueDate.Format(id.DateFormat),
		Description:    t.Description,
		Amount:         t.Amount,
		Kind:           t.Kind,
		Category:       t.Category,
		UploadedAt:     t.UploadedAt.Format("2006-01-02T15:04:05Z07:00"),
		LastModifiedAt: t.LastModifiedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

type listQuery struct {
	Month    string `form:"month" binding:"omitempty,yearmonth"`
	Category string `form:"category"`
	Search   string `form:"search"`
}

type monthQuery struct {
	Month string `form:"month" binding:"omitempty,yearmonth"`
}

type categoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type merchantRequest struct {
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
}

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type keywordRequest struct {
	Keyword string `json:"keyword" binding:"required"`
}

func (s *Server) listTransactions(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "month must be in YYYY-MM format")
		return
	}
	txns, err := s.svc.Transactions(c.Request.Context(), ingest.Filter{Month: q.Month, Category: q.Category, Search: q.Search})
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]transactionDTO, len(txns))
	for i, t := range txns {
		out[i] = toDTO(t)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) recategorize(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "category required")
		return
	}
	t, err := s.svc.Recategorize(c.Request.Context(), c.Param("hash"), req.Category)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toDTO(t))
}

func (s *Server) recategorizeMerchant(c *gin.Context) {
	var req merchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "description and category required")
		return
	}
	n, err := s.svc.RecategorizeMerchant(c.Request.Context(), req.Description, req.Category)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.svc.Statistics(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) summary(c *gin.Context) {
	var q monthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "month must be in YYYY-MM format")
		return
	}
	sum, err := s.svc.Summary(c.Request.Context(), q.Month)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) months(c *gin.Context) {
	months, err := s.svc.Months(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if months == nil {
		months = []string{}
	}
	c.JSON(http.StatusOK, months)
}

type categoryDTO struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

func (s *Server) listCategories(c *gin.Context) {
	cats := s.svc.Categories()
	out := make([]categoryDTO, len(cats))
	for i, cat := range cats {
		kws := cat.Keywords
		if kws == nil {
			kws = []string{}
		}
		out[i] = categoryDTO{Name: cat.Name, Keywords: kws}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) addCategory(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "name required")
		return
	}
	if err := s.svc.AddCategory(c.Request.Context(), req.Name); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"name": req.Name})
}

func (s *Server) addKeyword(c *gin.Context) {
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "keyword required")
		return
	}
	added, err := s.svc.AddKeyword(c.Request.Context(), c.Param("name"), req.Keyword)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"added": added})
}

func (s *Server) history(c *gin.Context) {
	entries, err := s.svc.History()
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]gin.H, len(entries))
	for i, e := range entries {
		out[i] = gin.H{
			"timestamp":  e.Timestamp,
			"batch_id":   e.BatchID,
			"source":     e.Source,
			"format":     e.Format,
			"parsed":     e.Parsed,
			"new":        e.New,
			"duplicates": e.Duplicates,
			"rejected":   e.Rejected,
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, "multipart field \"file\" required")
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	rep, err := s.svc.Import(c.Request.Context(), f, ingest.Source{
		Name:   filepath.Base(fh.Filename),
		Format: c.PostForm("format"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) enrich(c *gin.Context) {
	rep, err := s.svc.Enrich(c.Request.Context())
	if errors.Is(err, enrich.ErrUnavailable) {
		c.JSON(http.StatusOK, gin.H{"report": rep, "advisory": err.Error()})
		return
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"report": rep})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// fail maps service errors onto status codes. Storage failures are logged
// and hidden from the client.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, categories.ErrCategoryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, categories.ErrEmptyName):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, categories.ErrCategoryExists):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, importer.ErrMissingColumn), errors.Is(err, ingest.ErrUnknownFormat):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
