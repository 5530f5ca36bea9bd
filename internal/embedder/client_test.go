package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testFaceServer(t *testing.T, resp FaceResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embed/face" {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			http.Error(w, "expected multipart form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func testJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestComputeFaceEmbeddings(t *testing.T) {
	embedding := make([]float32, 128)
	for i := range embedding {
		embedding[i] = float32(i) / 128.0
	}

	server := testFaceServer(t, FaceResponse{
		FacesCount: 1,
		Faces: []FaceDetection{
			{FaceIndex: 0, Dim: 128, Embedding: embedding, BBox: []float64{10, 10, 100, 100}, DetScore: 0.99},
		},
		Model: "facenet",
	})
	defer server.Close()

	client := NewClient(server.URL, "facenet")
	resp, err := client.ComputeFaceEmbeddings(context.Background(), testJPEG(t, 64, 64))
	if err != nil {
		t.Fatalf("ComputeFaceEmbeddings failed: %v", err)
	}
	if resp.FacesCount != 1 {
		t.Errorf("Expected 1 face, got %d", resp.FacesCount)
	}
	if len(resp.Faces[0].Embedding) != 128 {
		t.Errorf("Expected 128-dim embedding, got %d", len(resp.Faces[0].Embedding))
	}
	if resp.Model != "facenet" {
		t.Errorf("Expected model 'facenet', got '%s'", resp.Model)
	}
}

func TestComputeSingleFaceEmbedding(t *testing.T) {
	embedding := make([]float32, 128)
	embedding[0] = 1.0

	tests := []struct {
		name       string
		facesCount int
		wantErr    error
	}{
		{"single face", 1, nil},
		{"no face", 0, ErrNoFaceDetected},
		{"two faces", 2, ErrMultipleFaces},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			faces := make([]FaceDetection, tt.facesCount)
			for i := range faces {
				faces[i] = FaceDetection{FaceIndex: i, Dim: 128, Embedding: embedding}
			}
			server := testFaceServer(t, FaceResponse{FacesCount: tt.facesCount, Faces: faces, Model: "facenet"})
			defer server.Close()

			client := NewClient(server.URL, "facenet")
			got, err := client.ComputeSingleFaceEmbedding(context.Background(), testJPEG(t, 32, 32))

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(got) != 128 {
				t.Errorf("Expected 128-dim embedding, got %d", len(got))
			}
		})
	}
}

func TestComputeFaceEmbeddingsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, "facenet")
	_, err := client.ComputeFaceEmbeddings(context.Background(), testJPEG(t, 32, 32))
	if err == nil {
		t.Fatal("Expected error for server failure, got nil")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("Expected status code in error, got: %v", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient("", "")
	if client.baseURL != defaultBaseURL {
		t.Errorf("Expected default base URL '%s', got '%s'", defaultBaseURL, client.baseURL)
	}
	if client.Model() != defaultModel {
		t.Errorf("Expected default model '%s', got '%s'", defaultModel, client.Model())
	}

	client = NewClient("http://example.com/", "arcface")
	if client.baseURL != "http://example.com" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", client.baseURL)
	}
	if client.Model() != "arcface" {
		t.Errorf("Expected model 'arcface', got '%s'", client.Model())
	}
}

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46}, "image/jpeg"},
		{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, "image/png"},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x00, 0x00}, "image/gif"},
		{"webp", []byte{0x52, 0x49, 0x46, 0x46, 0x00, 0x00, 0x00, 0x00, 0x57, 0x45, 0x42, 0x50}, "image/webp"},
		{"unknown", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}, "application/octet-stream"},
		{"too short", []byte{0xFF, 0xD8}, "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectMIMEType(tt.data); got != tt.expected {
				t.Errorf("Expected '%s', got '%s'", tt.expected, got)
			}
		})
	}
}

func TestResizeImage(t *testing.T) {
	t.Run("large image is downscaled", func(t *testing.T) {
		data := testJPEG(t, 200, 100)
		resized, err := ResizeImage(data, 50)
		if err != nil {
			t.Fatalf("ResizeImage failed: %v", err)
		}
		img, _, err := image.Decode(bytes.NewReader(resized))
		if err != nil {
			t.Fatalf("Failed to decode resized image: %v", err)
		}
		if img.Bounds().Dx() != 50 {
			t.Errorf("Expected width 50, got %d", img.Bounds().Dx())
		}
		if img.Bounds().Dy() != 25 {
			t.Errorf("Expected height 25, got %d", img.Bounds().Dy())
		}
	})

	t.Run("small image is unchanged", func(t *testing.T) {
		data := testJPEG(t, 40, 40)
		resized, err := ResizeImage(data, 50)
		if err != nil {
			t.Fatalf("ResizeImage failed: %v", err)
		}
		if !bytes.Equal(data, resized) {
			t.Error("Expected small image to pass through unchanged")
		}
	})

	t.Run("invalid data", func(t *testing.T) {
		if _, err := ResizeImage([]byte("not an image"), 50); err == nil {
			t.Error("Expected error for invalid image data")
		}
	})
}
