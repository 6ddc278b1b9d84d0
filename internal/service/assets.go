package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"canvas-agent/internal/model"
)

// AssetURLPrefix is where stored assets are served from.
const AssetURLPrefix = "/assets/"

type AssetService struct {
	dir     string
	cmd     *CommandService
	metrics *Metrics
	logger  *slog.Logger
}

func NewAssetService(dir string, cmd *CommandService, logger *slog.Logger) (*AssetService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetService{dir: dir, cmd: cmd, metrics: NewMetrics(), logger: logger.With("component", "assets")}, nil
}

func (s *AssetService) Dir() string {
	return s.dir
}

type ImportResult struct {
	Object   model.Object       `json:"object"`
	Entry    model.HistoryEntry `json:"entry"`
	Document model.Document     `json:"document"`
}

// ImportImage decodes imageBytes, shrinks it to fit the document canvas,
// stores it as PNG and inserts a centered image object. The insert is one
// undoable history entry.
func (s *AssetService) ImportImage(docID, name string, imageBytes []byte) (ImportResult, error) {
	doc, err := s.cmd.GetDocument(docID)
	if err != nil {
		return ImportResult{}, err
	}
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return ImportResult{}, fmt.Errorf("decode image: %w", err)
	}

	maxW, maxH := int(doc.Width), int(doc.Height)
	b := img.Bounds()
	if maxW > 0 && maxH > 0 && (b.Dx() > maxW || b.Dy() > maxH) {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}
	b = img.Bounds()

	id := uuid.NewString()
	file := id + ".png"
	if err := imaging.Save(img, filepath.Join(s.dir, file)); err != nil {
		return ImportResult{}, fmt.Errorf("save image: %w", err)
	}

	w, h := float64(b.Dx()), float64(b.Dy())
	obj := model.Object{
		ID:      id,
		Type:    model.TypeImage,
		Name:    strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)),
		Left:    (doc.Width - w) / 2,
		Top:     (doc.Height - h) / 2,
		Width:   w,
		Height:  h,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
		Src:     AssetURLPrefix + file,
	}
	action := model.Action{ObjectIDs: []string{id}, Params: model.InsertParams{Object: obj, Index: -1}}
	entry, doc, err := s.cmd.ApplyActions(docID, "import image "+obj.Name, []model.Action{action})
	if err != nil {
		_ = os.Remove(filepath.Join(s.dir, file))
		return ImportResult{}, err
	}

	s.metrics.RecordImageImport()
	s.logger.Info("image imported", "document_id", docID, "object_id", id, "width", b.Dx(), "height", b.Dy())
	return ImportResult{Object: obj, Entry: entry, Document: doc}, nil
}
