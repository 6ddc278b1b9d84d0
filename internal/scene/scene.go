// Package scene holds the live object graph the executor mutates and builds
// the read-only snapshots the planner reasons over.
package scene

import (
	"github.com/google/uuid"

	"canvas-agent/internal/model"
)

// Scene is the capability the executor needs from a live canvas.
type Scene interface {
	Size() (width, height float64)
	Objects() []*model.Object
	Object(id string) (*model.Object, bool)
	// Add inserts obj at z-index index (appending when out of range) and
	// returns the id it was stored under.
	Add(obj *model.Object, index int) string
	// Remove deletes the object and reports the z-index it occupied.
	Remove(id string) (int, bool)
	RequestRender()
}

// Memory is an in-memory Scene. Objects keep the ids they were created with
// so ids resolved during planning stay valid across reorderings.
type Memory struct {
	width   float64
	height  float64
	objects []*model.Object
	byID    map[string]*model.Object
	renders int
}

func NewMemory(width, height float64, objects []*model.Object) *Memory {
	m := &Memory{
		width:   width,
		height:  height,
		objects: make([]*model.Object, 0, len(objects)),
		byID:    make(map[string]*model.Object, len(objects)),
	}
	for _, o := range objects {
		m.Add(o, -1)
	}
	return m
}

// FromDocument wraps the document's objects; mutations are visible through
// Objects() and should be written back with ToDocument.
func FromDocument(doc model.Document) *Memory {
	return NewMemory(doc.Width, doc.Height, doc.Objects)
}

// ToDocument copies the current object order back into doc and drops
// selection and active-artboard entries that no longer exist.
func (m *Memory) ToDocument(doc *model.Document) {
	doc.Objects = m.Objects()
	doc.Selection = m.existing(doc.Selection)
	doc.ActiveArtboardIDs = m.existing(doc.ActiveArtboardIDs)
}

func (m *Memory) existing(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := m.byID[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *Memory) Size() (float64, float64) {
	return m.width, m.height
}

func (m *Memory) Objects() []*model.Object {
	out := make([]*model.Object, len(m.objects))
	copy(out, m.objects)
	return out
}

func (m *Memory) Object(id string) (*model.Object, bool) {
	o, ok := m.byID[id]
	return o, ok
}

func (m *Memory) Add(obj *model.Object, index int) string {
	if obj.ID == "" {
		obj.ID = uuid.NewString()
	} else if _, taken := m.byID[obj.ID]; taken {
		obj.ID = uuid.NewString()
	}
	if obj.ScaleX == 0 {
		obj.ScaleX = 1
	}
	if obj.ScaleY == 0 {
		obj.ScaleY = 1
	}
	if index < 0 || index >= len(m.objects) {
		m.objects = append(m.objects, obj)
	} else {
		m.objects = append(m.objects, nil)
		copy(m.objects[index+1:], m.objects[index:])
		m.objects[index] = obj
	}
	m.byID[obj.ID] = obj
	return obj.ID
}

func (m *Memory) Remove(id string) (int, bool) {
	if _, ok := m.byID[id]; !ok {
		return -1, false
	}
	delete(m.byID, id)
	for i, o := range m.objects {
		if o.ID == id {
			m.objects = append(m.objects[:i], m.objects[i+1:]...)
			return i, true
		}
	}
	return -1, false
}

func (m *Memory) RequestRender() {
	m.renders++
}

// Renders reports how many renders were requested.
func (m *Memory) Renders() int {
	return m.renders
}
