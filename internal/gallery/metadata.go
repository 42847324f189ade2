package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
)

const metadataExt = ".json"

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

var errUnparsable = errors.New("unparsable enrollment name")

func isImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

func metadataPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + metadataExt
}

// ReadMetadata loads the sidecar record stored next to an enrollment image.
func ReadMetadata(imagePath string) (*domain.Enrollment, error) {
	data, err := os.ReadFile(metadataPath(imagePath))
	if err != nil {
		return nil, err
	}

	var meta domain.Enrollment
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errUnparsable, filepath.Base(imagePath), err)
	}
	if err := meta.Identity.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errUnparsable, filepath.Base(imagePath), err)
	}
	return &meta, nil
}

// ParseLegacyFilename reads the identity encoded in an old-style
// "Name_RegNo.jpg" file name. The split is on the last underscore, so
// names may contain underscores but registration numbers may not.
func ParseLegacyFilename(name string) (domain.Identity, error) {
	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	i := strings.LastIndex(stem, "_")
	if i <= 0 || i == len(stem)-1 {
		return domain.Identity{}, fmt.Errorf("%w: %q", errUnparsable, name)
	}

	id := domain.Identity{
		Name:  stem[:i],
		RegNo: stem[i+1:],
	}
	if err := id.Validate(); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %q", errUnparsable, name)
	}
	return id.Normalized(), nil
}
