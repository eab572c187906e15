package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

const checkTimeout = 5 * time.Second

// CheckBackend verifies that the backend answers HTTP at all. The public
// meditation listing needs no credentials, so any response below 500 counts.
func CheckBackend(ctx context.Context, baseURL string) Result {
	const name = "Backend"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	status, err := probe(ctx, base+"/meditations/all", "")
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	if status >= http.StatusInternalServerError {
		return Result{Name: name, Detail: fmt.Sprintf("%s (server error %d)", base, status)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
}

// CheckCredential verifies that the token is accepted by an authenticated
// endpoint. A forbidden answer means the token is valid without admin rights.
func CheckCredential(ctx context.Context, baseURL, token string) Result {
	const name = "Credentials"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(token) == "" {
		return Result{Name: name, Detail: "not logged in"}
	}
	status, err := probe(ctx, base+"/admin/queuer", token)
	if err != nil {
		return Result{Name: name, Detail: summarizeProbeError(err)}
	}
	switch {
	case status == http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "token accepted (admin)"}
	case status == http.StatusForbidden:
		return Result{Name: name, Passed: true, Detail: "token accepted"}
	case status == http.StatusUnauthorized:
		return Result{Name: name, Detail: "token rejected (log in again)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", status)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "path not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func probe(ctx context.Context, url, token string) (int, error) {
	checkCtx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}
	client := &http.Client{Timeout: checkTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// summarizeProbeError produces a human-readable summary for failed probes.
func summarizeProbeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "check timed out (backend unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "check timed out (backend unreachable)"
	}
	return fmt.Sprintf("unreachable (%v)", err)
}
