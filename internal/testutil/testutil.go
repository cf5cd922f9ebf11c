// Package testutil holds fixtures and mocks shared by package tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/KaramelBytes/tabloom-cli/internal/analysis"
)

// MockRenderer is a mock of viz.Renderer.
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(c *analysis.CorrMatrix, path string) error {
	args := m.Called(c, path)
	return args.Error(0)
}

// WriteFile writes content under a fresh temp dir and returns its path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

// SampleCSV is a five-row, three-column table with one incomplete row.
const SampleCSV = "feature_a,feature_b,label\n" +
	"1,10,0\n" +
	"2,,1\n" +
	"3,30,0\n" +
	"4,35,1\n" +
	"5,50,1\n"

// LinearCSV returns n complete rows of two numeric features and a 0/1 label.
func LinearCSV(n int) string {
	var b strings.Builder
	b.WriteString("x1,x2,y\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%d,%d,%d\n", i, (i*7)%13, i%2)
	}
	return b.String()
}
