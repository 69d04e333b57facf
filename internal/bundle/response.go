package bundle

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/MShaffar19/webbundle/internal/mimetype"
)

// createResponse reads baseDir/rel into memory and wraps it in a 200
// response carrying exactly Content-Length and Content-Type.
func createResponse(baseDir, rel string) (Response, error) {
	if err := checkRelative(rel); err != nil {
		return Response{}, err
	}

	p := filepath.Join(baseDir, rel)
	body, err := os.ReadFile(p)
	if err != nil {
		return Response{}, newIOError(p, err)
	}

	h := make(http.Header, 2)
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Content-Type", mimetype.ByPath(p))

	// body is freshly read and owned here, no copy
	return Response{status: http.StatusOK, header: h, body: body}, nil
}
