package service

import (
	"bytes"
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"canvas-agent/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestImportImageFitsAndInserts(t *testing.T) {
	svc, _ := newService(t, nil)
	assets, err := NewAssetService(t.TempDir(), svc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := assets.ImportImage("doc", "banner.png", pngBytes(t, 2000, 100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	obj := res.Object
	if obj.Type != model.TypeImage || obj.Name != "banner" {
		t.Fatalf("unexpected object: %+v", obj)
	}
	if obj.Width != 1000 || obj.Height != 50 {
		t.Fatalf("image not fitted to canvas: %vx%v", obj.Width, obj.Height)
	}
	if obj.Left != 0 || obj.Top != 375 {
		t.Fatalf("image not centered: %v,%v", obj.Left, obj.Top)
	}
	if !strings.HasPrefix(obj.Src, AssetURLPrefix) {
		t.Fatalf("unexpected src: %s", obj.Src)
	}
	if _, err := os.Stat(filepath.Join(assets.Dir(), strings.TrimPrefix(obj.Src, AssetURLPrefix))); err != nil {
		t.Fatalf("asset not stored: %v", err)
	}
	if len(res.Document.Objects) != 2 || res.Document.Objects[1].ID != obj.ID {
		t.Fatalf("image not inserted on top: %+v", res.Document.Objects)
	}

	undone, err := svc.Undo(context.Background(), "doc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(undone.Document.Objects) != 1 {
		t.Fatalf("import not undone")
	}
}

func TestImportImageKeepsSmallImages(t *testing.T) {
	svc, _ := newService(t, nil)
	assets, _ := NewAssetService(t.TempDir(), svc, nil)
	res, err := assets.ImportImage("doc", "icon.png", pngBytes(t, 64, 32))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Object.Width != 64 || res.Object.Height != 32 {
		t.Fatalf("small image resized: %+v", res.Object)
	}
}

func TestImportImageRejectsGarbage(t *testing.T) {
	svc, _ := newService(t, nil)
	assets, _ := NewAssetService(t.TempDir(), svc, nil)
	if _, err := assets.ImportImage("doc", "x.png", []byte("not an image")); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := assets.ImportImage("missing", "x.png", pngBytes(t, 4, 4)); err == nil {
		t.Fatalf("expected missing document error")
	}
}
