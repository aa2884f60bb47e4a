package dto

import "github.com/cuongbtq/content-i18n/internal/provider"

type TranslationsRequest struct {
	ContentType string `form:"contentType" binding:"required"`
	ContentID   string `form:"contentId" binding:"required"`
	Locale      string `form:"locale"`
}

type SyncRequest struct {
	LanguageID int64 `json:"language_id" form:"language_id"`
}

type TranslateRequest struct {
	Texts []string `json:"texts" binding:"required,min=1,max=100"`
	To    string   `json:"to" binding:"required"`
	From  string   `json:"from"`
}

type TranslateItem struct {
	Index    int    `json:"index"`
	Text     string `json:"text,omitempty"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

type TranslateResponse struct {
	From      string          `json:"from"`
	To        string          `json:"to"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Items     []TranslateItem `json:"items"`
}

// NewTranslateResponse converts batch results for the wire
func NewTranslateResponse(from, to string, items []provider.BatchItem) TranslateResponse {
	resp := TranslateResponse{From: from, To: to, Items: make([]TranslateItem, len(items))}
	for i, item := range items {
		resp.Items[i] = TranslateItem{Index: item.Index}
		if item.Err != nil {
			resp.Items[i].Error = item.Err.Error()
			resp.Failed++
			continue
		}
		resp.Items[i].Text = item.Result.Text
		resp.Items[i].Provider = item.Result.Provider
		resp.Succeeded++
	}
	return resp
}
