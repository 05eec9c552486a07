package router

import "github.com/labstack/echo/v4"

// RegisterMemos registers memo, query, reaction and relation routes.
// Reads take an optional credential so anonymous callers see PUBLIC
// memos; writes require one.
func RegisterMemos(v1 *echo.Group, d Deps, g guards) {
	m := d.Memos
	v1.POST("/memos", m.Create, g.anyCred...)
	v1.GET("/memos", m.List, g.optional...)
	v1.GET("/memos/uid/:uid", m.GetByUID, g.optional...)
	v1.GET("/memos/:id", m.Get, g.optional...)
	v1.PATCH("/memos/:id", m.Update, g.anyCred...)
	v1.DELETE("/memos/:id", m.Delete, g.anyCred...)

	v1.GET("/search/memos", m.Search, g.optional...)
	v1.GET("/filter/memos", m.Filter, g.optional...)
	v1.GET("/tags", m.Tags, g.optional...)
	v1.GET("/stats", m.Stats, g.optional...)

	r := d.Reactions
	v1.POST("/memos/:id/reactions", r.Add, g.anyCred...)
	v1.GET("/memos/:id/reactions", r.List, g.optional...)
	v1.DELETE("/reactions/:id", r.Remove, g.anyCred...)
	v1.POST("/memos/:id/relations", r.Link, g.anyCred...)
	v1.GET("/memos/:id/relations", r.ListRelations, g.optional...)
}

// RegisterTokens registers personal access token management.  Only a
// session may mint, list or revoke tokens.
func RegisterTokens(v1 *echo.Group, d Deps, g guards) {
	v1.POST("/tokens", d.Tokens.Issue, g.session...)
	v1.GET("/tokens", d.Tokens.List, g.session...)
	v1.DELETE("/tokens/:id", d.Tokens.Revoke, g.session...)
}

// RegisterAttachments registers upload and owner-only reads.
func RegisterAttachments(v1 *echo.Group, d Deps, g guards) {
	a := d.Attachments
	v1.POST("/attachments", a.Upload, g.anyCred...)
	v1.GET("/attachments", a.List, g.anyCred...)
	v1.GET("/attachments/:id", a.Get, g.anyCred...)
	v1.GET("/attachments/:id/blob", a.Download, g.anyCred...)
	v1.DELETE("/attachments/:id", a.Delete, g.anyCred...)
}
