package canva

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/jrsteele09/funeral-coordinator/internal/utils"
)

type ExportFormat string

const (
	ExportPDF  ExportFormat = "pdf"
	ExportPNG  ExportFormat = "png"
	ExportJPG  ExportFormat = "jpg"
	ExportGIF  ExportFormat = "gif"
	ExportPPTX ExportFormat = "pptx"
	ExportMP4  ExportFormat = "mp4"
)

type Thumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type BrandTemplate struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	CreateURL string     `json:"create_url"`
	ViewURL   string     `json:"view_url"`
	Thumbnail *Thumbnail `json:"thumbnail,omitempty"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
}

type BrandTemplateList struct {
	Items        []BrandTemplate `json:"items"`
	Continuation string          `json:"continuation,omitempty"`
}

type ExportDownload struct {
	URL        string `json:"url"`
	Format     string `json:"format"`
	PageNumber *int   `json:"page_number,omitempty"`
}

type ExportJob struct {
	ID        string `json:"id"`
	DesignID  string `json:"design_id,omitempty"`
	Status    string `json:"status"` // queued, in_progress, success or failed
	CreatedAt int64  `json:"created_at,omitempty"`
	UpdatedAt int64  `json:"updated_at,omitempty"`
	Result    *struct {
		Downloads []ExportDownload `json:"downloads"`
	} `json:"result,omitempty"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type ExportJobResponse struct {
	Job ExportJob `json:"job"`
}

type PDFOptions struct {
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"` // standard or high
}

// ExportRequest is what the site posts to start an export.
type ExportRequest struct {
	DesignID string        `json:"designId"`
	Format   *ExportFormat `json:"format,omitempty"`
	Pages    []int         `json:"pages,omitempty"`
	PDF      *PDFOptions   `json:"pdf,omitempty"`
}

type exportFormatPayload struct {
	Type          ExportFormat `json:"type"`
	Pages         []int        `json:"pages,omitempty"`
	Size          string       `json:"size,omitempty"`
	ExportQuality string       `json:"export_quality,omitempty"`
}

type exportPayload struct {
	DesignID string              `json:"design_id"`
	Format   exportFormatPayload `json:"format"`
}

// Payload converts the request into the body Canva's export endpoint
// expects. Format defaults to pdf; size and quality only apply to pdf.
func (r ExportRequest) Payload() any {
	format := utils.ValueOr(r.Format, ExportPDF)
	p := exportFormatPayload{Type: format}
	if len(r.Pages) > 0 {
		p.Pages = r.Pages
	}
	if format == ExportPDF && r.PDF != nil {
		p.Size = r.PDF.Size
		p.ExportQuality = r.PDF.Quality
	}
	return exportPayload{DesignID: r.DesignID, Format: p}
}

// Profile is returned as-is; only display_name is documented.
type Profile struct {
	Profile struct {
		DisplayName string `json:"display_name,omitempty"`
	} `json:"profile"`
}

// BrandTemplateQuery filters the brand template listing.
type BrandTemplateQuery struct {
	Query        string
	Continuation string
	SortBy       string
}

func (q BrandTemplateQuery) values() url.Values {
	v := url.Values{}
	if q.Query != "" {
		v.Set("query", q.Query)
	}
	if q.Continuation != "" {
		v.Set("continuation", q.Continuation)
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	return v
}

// GetProfile returns the connected user's profile.
func (g *Gateway) GetProfile(ctx context.Context, jar session.Jar) (*Profile, error) {
	return Call[Profile](ctx, g, jar, "/v1/users/me/profile", RequestOptions{})
}

func (g *Gateway) ListBrandTemplates(ctx context.Context, jar session.Jar, q BrandTemplateQuery) (*BrandTemplateList, error) {
	return Call[BrandTemplateList](ctx, g, jar, "/v1/brand-templates", RequestOptions{Query: q.values()})
}

func (g *Gateway) CreateExport(ctx context.Context, jar session.Jar, req ExportRequest) (*ExportJobResponse, error) {
	return Call[ExportJobResponse](ctx, g, jar, "/v1/exports", RequestOptions{
		Method: http.MethodPost,
		Body:   req.Payload(),
	})
}

func (g *Gateway) GetExport(ctx context.Context, jar session.Jar, exportID string) (*ExportJobResponse, error) {
	return Call[ExportJobResponse](ctx, g, jar, "/v1/exports/"+url.PathEscape(strings.TrimSpace(exportID)), RequestOptions{})
}
