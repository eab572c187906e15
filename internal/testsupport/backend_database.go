package testsupport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"time"
)

type fakeBackup struct {
	content   []byte
	createdAt time.Time
}

// AddBackup seeds a stored database dump.
func (b *FakeBackend) AddBackup(filename string, content []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.backups[filename] = fakeBackup{
		content:   slices.Clone(content),
		createdAt: time.Date(2026, 1, 1, 0, 0, len(b.backups), 0, time.UTC),
	}
}

// HasBackup reports whether filename is still stored.
func (b *FakeBackend) HasBackup(filename string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.backups[filename]
	return ok
}

// RestoredDump returns the last dump uploaded for a restore.
func (b *FakeBackend) RestoredDump() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.restored)
}

func (b *FakeBackend) handleListBackups(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	type row struct {
		Filename      string    `json:"filename"`
		Size          int       `json:"size"`
		SizeFormatted string    `json:"sizeFormatted"`
		CreatedAt     time.Time `json:"createdAt"`
	}
	out := make([]row, 0, len(b.backups))
	for name, bk := range b.backups {
		out = append(out, row{
			Filename:      name,
			Size:          len(bk.content),
			SizeFormatted: fmt.Sprintf("%d B", len(bk.content)),
			CreatedAt:     bk.createdAt,
		})
	}
	b.mu.Unlock()
	slices.SortFunc(out, func(a, c row) int { return c.CreatedAt.Compare(a.CreatedAt) })
	writeJSON(w, http.StatusOK, map[string]any{"backups": out, "count": len(out)})
}

func (b *FakeBackend) handleCreateBackup(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	name := fmt.Sprintf("backup-%03d.json", len(b.backups)+1)
	content := []byte(`{"users":[],"meditations":[],"queue":[]}`)
	created := time.Date(2026, 1, 2, 0, 0, len(b.backups), 0, time.UTC)
	b.backups[name] = fakeBackup{content: content, createdAt: created}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Backup created successfully",
		"filename":       name,
		"path":           "/backups/" + name,
		"tablesExported": 3,
		"timestamp":      created,
	})
}

func (b *FakeBackend) handleDownloadBackup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	b.mu.Lock()
	bk, ok := b.backups[name]
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Backup not found")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	_, _ = w.Write(bk.content)
}

func (b *FakeBackend) handleDeleteBackup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	b.mu.Lock()
	_, ok := b.backups[name]
	delete(b.backups, name)
	b.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Backup not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Backup deleted successfully", "filename": name})
}

// handleRestore accepts a JSON dump of table name to rows.
func (b *FakeBackend) handleRestore(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "NO_FILE", "No backup file uploaded")
		return
	}
	defer file.Close()
	if !strings.HasSuffix(header.Filename, ".json") {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Backup must be a .json file")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Unreadable backup file")
		return
	}
	var tables map[string][]json.RawMessage
	if err := json.Unmarshal(content, &tables); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_FILE", "Backup is not a valid dump")
		return
	}
	rows := make(map[string]int, len(tables))
	total := 0
	for name, data := range tables {
		rows[name] = len(data)
		total += len(data)
	}
	b.mu.Lock()
	b.restored = content
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Database restored successfully",
		"tablesImported": len(tables),
		"rowsImported":   rows,
		"totalRows":      total,
	})
}
