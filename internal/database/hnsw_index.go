package database

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/coder/hnsw"
)

// HNSWIndexMetadata stores metadata for validating cached HNSW indexes.
type HNSWIndexMetadata struct {
	EnrollmentCount int64     `json:"enrollment_count"`
	MaxEnrollmentID int64     `json:"max_enrollment_id"`
	BuildTime       time.Time `json:"build_time"`
	Version         int       `json:"version"` // For future compatibility
}

const hnswMetadataVersion = 1

// HNSWIndex wraps the HNSW graph for enrollment embedding search.
type HNSWIndex struct {
	graph          *hnsw.Graph[int64]
	savedGraph     *hnsw.SavedGraph[int64]     // For persistence
	idToEnrollment map[int64]*StoredEnrollment // Maps HNSW node ID to enrollment
	mu             sync.RWMutex
	path           string // Path to save/load index
}

// NewHNSWIndex creates a new empty HNSW index.
func NewHNSWIndex() *HNSWIndex {
	return &HNSWIndex{
		idToEnrollment: make(map[int64]*StoredEnrollment),
	}
}

// BuildFromEnrollments builds the index from a slice of enrollments.
func (h *HNSWIndex) BuildFromEnrollments(enrollments []StoredEnrollment) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(enrollments) == 0 {
		h.graph = nil
		h.savedGraph = nil
		h.idToEnrollment = make(map[int64]*StoredEnrollment)
		return nil
	}

	// Create new graph with cosine distance.
	g := hnsw.NewGraph[int64]()
	g.M = HNSWMaxNeighbors
	g.Ml = 1.0 / float64(HNSWMaxNeighbors) // Standard HNSW formula
	g.Distance = hnsw.CosineDistance

	h.idToEnrollment = make(map[int64]*StoredEnrollment, len(enrollments))

	for i := range enrollments {
		enrollment := &enrollments[i]
		if len(enrollment.Embedding) == 0 {
			continue
		}

		g.Add(hnsw.MakeNode(enrollment.ID, enrollment.Embedding))
		h.idToEnrollment[enrollment.ID] = enrollment
	}

	h.graph = g
	return nil
}

// Search finds the k nearest neighbors to the query embedding.
// Returns enrollment IDs and their cosine distances.
func (h *HNSWIndex) Search(query []float32, k int) ([]int64, []float64, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		return nil, nil, errors.New("index not initialized")
	}

	var neighbors []hnsw.Node[int64]
	if h.savedGraph != nil {
		neighbors = h.savedGraph.Search(query, k)
	} else {
		neighbors = h.graph.Search(query, k)
	}

	ids := make([]int64, len(neighbors))
	distances := make([]float64, len(neighbors))

	for i, n := range neighbors {
		ids[i] = n.Key
		// Compute the exact cosine distance from the node's embedding so
		// callers get precise values rather than graph-internal estimates.
		if len(n.Value) > 0 {
			distances[i] = CosineDistance(query, n.Value)
		}
	}

	return ids, distances, nil
}

// GetEnrollment returns the enrollment for a given ID.
func (h *HNSWIndex) GetEnrollment(id int64) *StoredEnrollment {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.idToEnrollment[id]
}

// Add adds a single enrollment to the index.
func (h *HNSWIndex) Add(enrollment *StoredEnrollment) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(enrollment.Embedding) == 0 {
		return nil
	}

	if h.graph == nil {
		h.graph = hnsw.NewGraph[int64]()
		h.graph.M = HNSWMaxNeighbors
		h.graph.Ml = 1.0 / float64(HNSWMaxNeighbors)
		h.graph.Distance = hnsw.CosineDistance
	}

	h.graph.Add(hnsw.MakeNode(enrollment.ID, enrollment.Embedding))
	h.idToEnrollment[enrollment.ID] = enrollment

	return nil
}

// Delete removes an enrollment from the index (marks as deleted).
func (h *HNSWIndex) Delete(id int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.idToEnrollment, id)
	// HNSW doesn't support true deletion; removing from idToEnrollment
	// effectively removes it from search results since we filter by lookup.
}

// Count returns the number of indexed enrollments.
func (h *HNSWIndex) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.idToEnrollment)
}

// IsEmpty returns true if the index has no graph data loaded.
// Note: idToEnrollment is populated separately after loading from disk.
func (h *HNSWIndex) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.graph == nil && h.savedGraph == nil
}

// RebuildFromEnrollments rebuilds the idToEnrollment map from enrollments.
// Called after loading the graph from disk without a .enrollments file.
func (h *HNSWIndex) RebuildFromEnrollments(enrollments []StoredEnrollment) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.idToEnrollment = make(map[int64]*StoredEnrollment, len(enrollments))
	for i := range enrollments {
		h.idToEnrollment[enrollments[i].ID] = &enrollments[i]
	}
}

// Load loads the graph from disk without enrollment metadata.
func (h *HNSWIndex) Load(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil // No index file, will build from enrollments
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	h.savedGraph = saved
	return nil
}

// LoadHNSWMetadata loads metadata from a separate .meta file.
func LoadHNSWMetadata(path string) (HNSWIndexMetadata, error) {
	var metadata HNSWIndexMetadata

	metaPath := path + ".meta"
	data, err := os.ReadFile(metaPath) //nolint:gosec // path is from trusted config
	if err != nil {
		return metadata, fmt.Errorf("failed to read metadata file: %w", err)
	}

	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	return metadata, nil
}

// SaveEnrollmentMetadata saves enrollment metadata to a .enrollments file
// for fast loading at startup.
func SaveEnrollmentMetadata(path string, enrollments []StoredEnrollment) error {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(enrollments); err != nil {
		return fmt.Errorf("failed to encode enrollments: %w", err)
	}

	if err := os.WriteFile(path+".enrollments", buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write enrollments file: %w", err)
	}

	return nil
}

// LoadEnrollmentMetadata loads enrollment metadata from a .enrollments file.
func LoadEnrollmentMetadata(path string) ([]StoredEnrollment, error) {
	data, err := os.ReadFile(path + ".enrollments") //nolint:gosec // path is from trusted config
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollments file: %w", err)
	}

	var enrollments []StoredEnrollment
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&enrollments); err != nil {
		return nil, fmt.Errorf("failed to decode enrollments: %w", err)
	}

	return enrollments, nil
}

// LoadWithEnrollmentMetadata loads both the HNSW graph and enrollment metadata from disk.
func (h *HNSWIndex) LoadWithEnrollmentMetadata(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.path = path

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("HNSW index file not found: %s", path)
	}

	saved, err := hnsw.LoadSavedGraph[int64](path)
	if err != nil {
		return fmt.Errorf("failed to load HNSW index: %w", err)
	}

	enrollments, err := LoadEnrollmentMetadata(path)
	if err != nil {
		return fmt.Errorf("failed to load enrollment metadata: %w", err)
	}

	h.savedGraph = saved
	h.idToEnrollment = make(map[int64]*StoredEnrollment, len(enrollments))
	for i := range enrollments {
		h.idToEnrollment[enrollments[i].ID] = &enrollments[i]
	}

	return nil
}

// exportGraph exports the HNSW graph to the given file path.
func (h *HNSWIndex) exportGraph(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return fmt.Errorf("failed to create HNSW index file: %w", err)
	}
	if h.savedGraph != nil {
		if err := h.savedGraph.Export(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to export HNSW graph from savedGraph: %w", err)
		}
	} else {
		if err := h.graph.Export(f); err != nil {
			_ = f.Close()
			return fmt.Errorf("failed to export HNSW graph: %w", err)
		}
	}
	_ = f.Close()
	fmt.Printf("Enrollment index: wrote graph to %s\n", path)
	return nil
}

// SaveWithEnrollmentMetadata persists the index and enrollment metadata to disk.
func (h *HNSWIndex) SaveWithEnrollmentMetadata(path string, metadata HNSWIndexMetadata) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.graph == nil && h.savedGraph == nil {
		fmt.Printf("Enrollment index save: no graph loaded, removing files\n")
		_ = os.Remove(path)
		_ = os.Remove(path + ".meta")
		_ = os.Remove(path + ".enrollments")
		return nil
	}

	if err := h.exportGraph(path); err != nil {
		return err
	}

	metadata.Version = hnswMetadataVersion
	metaData, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	metaPath := path + ".meta"
	if err := os.WriteFile(metaPath, metaData, 0600); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	fmt.Printf("Enrollment index: wrote metadata to %s (%d bytes)\n", metaPath, len(metaData))

	enrollments := make([]StoredEnrollment, 0, len(h.idToEnrollment))
	for _, e := range h.idToEnrollment {
		enrollments = append(enrollments, *e)
	}
	if err := SaveEnrollmentMetadata(path, enrollments); err != nil {
		return fmt.Errorf("failed to save enrollment metadata: %w", err)
	}
	fmt.Printf("Enrollment index: wrote enrollments to %s.enrollments (%d enrollments)\n", path, len(enrollments))

	return nil
}
