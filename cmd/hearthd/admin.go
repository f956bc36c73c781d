package main

import (
	"strings"

	json "github.com/json-iterator/go"

	"github.com/hearth-http/hearth/conncontext"
	"github.com/hearth-http/hearth/log"
	"github.com/hearth-http/hearth/stats"
	"github.com/hearth-http/hearth/staticfile"
	"github.com/hearth-http/hearth/status"
)

// admin serves the three JSON/text introspection endpoints spec.md §6
// leaves to the launcher: recent log lines, a stats snapshot, and the
// file-cache listing.
type admin struct {
	logger *log.Sink
	stats  *stats.Counters
	static *staticfile.Server
	token  string
}

func newAdmin(logger *log.Sink, counters *stats.Counters, static *staticfile.Server, token string) *admin {
	return &admin{logger: logger, stats: counters, static: static, token: token}
}

func (a *admin) Handle(ctx *conncontext.Context) error {
	if ctx.Request.Headers.Value("x-admin-token") != a.token {
		return ctx.SendTextStatus("Forbidden", status.Forbidden)
	}

	switch strings.TrimPrefix(ctx.Request.PathLower, "admin/api/") {
	case "log":
		return a.handleLog(ctx)
	case "stats":
		return a.handleStats(ctx)
	case "files":
		return a.handleFiles(ctx)
	default:
		return ctx.SendTextStatus("Not Found", status.NotFound)
	}
}

func (a *admin) handleLog(ctx *conncontext.Context) error {
	var b strings.Builder

	for _, entry := range a.logger.Snapshot() {
		b.WriteString(entry.String())
		b.WriteByte('\n')
	}

	if err := ctx.Response.WithContentType("text/plain"); err != nil {
		return err
	}

	return ctx.SendText(b.String())
}

func (a *admin) handleStats(ctx *conncontext.Context) error {
	body, err := json.Marshal(a.stats.Snapshot())
	if err != nil {
		return err
	}

	if err := ctx.Response.WithContentType("application/json"); err != nil {
		return err
	}

	return ctx.SendResponse(body)
}

func (a *admin) handleFiles(ctx *conncontext.Context) error {
	body, err := json.Marshal(a.static.Listing())
	if err != nil {
		return err
	}

	if err := ctx.Response.WithContentType("application/json"); err != nil {
		return err
	}

	return ctx.SendResponse(body)
}
