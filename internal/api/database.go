package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"
)

// Backup is a database dump stored on the backend.
type Backup struct {
	Filename      string    `json:"filename"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BackupCreated acknowledges a new dump.
type BackupCreated struct {
	Message        string    `json:"message"`
	Filename       string    `json:"filename"`
	Path           string    `json:"path"`
	TablesExported int       `json:"tablesExported"`
	Timestamp      time.Time `json:"timestamp"`
}

// RestoreResult summarizes a database restore from an uploaded dump.
type RestoreResult struct {
	Message        string           `json:"message"`
	TablesImported int              `json:"tablesImported"`
	RowsImported   map[string]int64 `json:"rowsImported"`
	TotalRows      int64            `json:"totalRows"`
}

// Backups lists the dumps kept by the backend, as ordered by the server.
func (c *Client) Backups(ctx context.Context) ([]Backup, error) {
	var resp struct {
		Backups []Backup `json:"backups"`
		Count   int      `json:"count"`
	}
	if err := c.do(ctx, call{op: "list backups", method: http.MethodGet, path: []string{"database", "backups-list"}, out: &resp}); err != nil {
		return nil, err
	}
	return resp.Backups, nil
}

// CreateBackup asks the backend to dump every table to a new backup file.
func (c *Client) CreateBackup(ctx context.Context) (BackupCreated, error) {
	var resp BackupCreated
	err := c.do(ctx, call{op: "create backup", method: http.MethodPost, path: []string{"database", "create-backup"}, out: &resp})
	return resp, err
}

// DownloadBackup streams the named backup into w and returns the byte count.
func (c *Client) DownloadBackup(ctx context.Context, filename string, w io.Writer) (int64, error) {
	const op = "download backup"
	if err := checkBackupName(op, filename); err != nil {
		return 0, err
	}
	cw := &countingWriter{w: w}
	err := c.do(ctx, call{op: op, method: http.MethodGet, path: []string{"database", "download-backup", filename}, sink: cw})
	return cw.n, err
}

// DeleteBackup removes the named backup from the backend.
func (c *Client) DeleteBackup(ctx context.Context, filename string) (string, error) {
	const op = "delete backup"
	if err := checkBackupName(op, filename); err != nil {
		return "", err
	}
	var resp struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, call{op: op, method: http.MethodDelete, path: []string{"database", "delete-backup", filename}, out: &resp})
	return resp.Message, err
}

// RestoreDatabase uploads a dump and replaces the backend's data with it.
func (c *Client) RestoreDatabase(ctx context.Context, filename string, dump io.Reader) (RestoreResult, error) {
	var resp RestoreResult
	err := c.do(ctx, call{
		op:     "restore database",
		method: http.MethodPost,
		path:   []string{"database", "replenish-database"},
		upload: &upload{field: "file", filename: path.Base(filename), content: dump},
		out:    &resp,
	})
	return resp, err
}

// checkBackupName rejects names that would escape the backup path segment.
func checkBackupName(op, filename string) error {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return &Error{Kind: ErrValidation, Op: op, Message: fmt.Sprintf("invalid backup filename %q", filename)}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
