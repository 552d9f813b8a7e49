package pyext

import (
	"context"
	"testing"
)

func TestBuilderFactory(t *testing.T) {
	factory := NewBuilderFactory()

	// Test that all expected builders are registered
	builders := factory.ListBuilders()
	if len(builders) != 5 {
		t.Errorf("Expected 5 builders, got %d", len(builders))
	}

	// Test builder detection for each type
	testCases := []struct {
		entryFile    string
		expectedName string
	}{
		{"pyext.yaml", "Descriptor"},
		{"pyext.yml", "Descriptor"},
		{"src/fib/pyext.yaml", "Descriptor"},
		{"ext/Makefile", "Makefile"},
		{"ext/GNUmakefile", "Makefile"},
		{"ext/CMakeLists.txt", "CMake"},
		{"ext/Cargo.toml", "Cargo"},
		{"ext/go.mod", "Go"},
		{"ext/bridge.go", "Go"},
	}

	for _, tc := range testCases {
		t.Run(tc.entryFile, func(t *testing.T) {
			builder, err := factory.BuilderFor(tc.entryFile)
			if err != nil {
				t.Fatalf("Expected builder for %s, got error: %v", tc.entryFile, err)
			}

			if builder.Name() != tc.expectedName {
				t.Errorf("Expected builder %s for %s, got %s", tc.expectedName, tc.entryFile, builder.Name())
			}
		})
	}

	// Test unsupported entry file
	_, err := factory.BuilderFor("unknown.file")
	if err == nil {
		t.Error("Expected error for unsupported entry file")
	}
}

func TestBuilderDetection(t *testing.T) {
	testCases := []struct {
		name         string
		builder      Builder
		validFiles   []string
		invalidFiles []string
	}{
		{
			name:    "DescriptorBuilder",
			builder: &DescriptorBuilder{},
			validFiles: []string{
				"pyext.yaml",
				"pyext.yml",
				"src/fib/pyext.yaml",
			},
			invalidFiles: []string{
				"Makefile",
				"CMakeLists.txt",
				"Cargo.toml",
				"setup.py",
				"other.yaml",
			},
		},
		{
			name:    "MakefileBuilder",
			builder: &MakefileBuilder{},
			validFiles: []string{
				"Makefile",
				"makefile",
				"GNUmakefile",
			},
			invalidFiles: []string{
				"pyext.yaml",
				"CMakeLists.txt",
				"Cargo.toml",
				"Makefile.am",
			},
		},
		{
			name:    "CMakeBuilder",
			builder: &CMakeBuilder{},
			validFiles: []string{
				"CMakeLists.txt",
			},
			invalidFiles: []string{
				"pyext.yaml",
				"Makefile",
				"Cargo.toml",
				"cmake.txt",
			},
		},
		{
			name:    "CargoBuilder",
			builder: &CargoBuilder{},
			validFiles: []string{
				"Cargo.toml",
			},
			invalidFiles: []string{
				"pyext.yaml",
				"Makefile",
				"CMakeLists.txt",
				"cargo.toml",
			},
		},
		{
			name:    "GoBuilder",
			builder: &GoBuilder{},
			validFiles: []string{
				"go.mod",
				"bridge.go",
			},
			invalidFiles: []string{
				"pyext.yaml",
				"Makefile",
				"go.sum",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for _, file := range tc.validFiles {
				if !tc.builder.CanBuild(file) {
					t.Errorf("%s should be able to build %s", tc.name, file)
				}
			}

			for _, file := range tc.invalidFiles {
				if tc.builder.CanBuild(file) {
					t.Errorf("%s should not be able to build %s", tc.name, file)
				}
			}
		})
	}
}

func TestMatchesPattern(t *testing.T) {
	testCases := []struct {
		filename string
		patterns []string
		expected bool
	}{
		{"pyext.yaml", []string{`^pyext\.ya?ml$`}, true},
		{"pyext.yml", []string{`^pyext\.ya?ml$`}, true},
		{"CMakeLists.txt", []string{`CMakeLists\.txt$`}, true},
		{"Cargo.toml", []string{`Cargo\.toml$`}, true},
		{"notpyext.yaml", []string{`^pyext\.ya?ml$`}, false},
		{"unknown.file", []string{`^pyext\.ya?ml$`, `Cargo\.toml$`}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			result := MatchesPattern(tc.filename, tc.patterns...)
			if result != tc.expected {
				t.Errorf("MatchesPattern(%s, %v) = %v, expected %v",
					tc.filename, tc.patterns, result, tc.expected)
			}
		})
	}
}

func TestMatchesExtension(t *testing.T) {
	testCases := []struct {
		filename   string
		extensions []string
		expected   bool
	}{
		{"fib.so", []string{".so"}, true},
		{"fib.SO", []string{".so"}, true},
		{"fib.pyd", []string{".so", ".pyd"}, true},
		{"fib.c", []string{".so", ".pyd"}, false},
		{"noext", []string{".so"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			result := MatchesExtension(tc.filename, tc.extensions...)
			if result != tc.expected {
				t.Errorf("MatchesExtension(%s, %v) = %v, expected %v",
					tc.filename, tc.extensions, result, tc.expected)
			}
		})
	}
}

func TestBuildError(t *testing.T) {
	output := []string{"line 1", "line 2", "error occurred"}
	err := BuildError("TestBuilder", output, nil)

	expected := "TestBuilder build failed: <nil>\n\nBuild output:\nline 1\nline 2\nerror occurred"
	if err.Error() != expected {
		t.Errorf("BuildError output mismatch.\nExpected: %s\nGot: %s", expected, err.Error())
	}
}

func TestBuildAllExtensions(t *testing.T) {
	factory := NewBuilderFactory()

	config := &BuildConfig{
		PackageDir:    t.TempDir(),
		StopOnFailure: true,
	}

	ctx := context.Background()

	// Test with no entries
	results, err := factory.BuildAllExtensions(ctx, config, nil)
	if err != nil {
		t.Errorf("Expected no error for empty entries, got %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected 0 results for empty entries, got %d", len(results))
	}

	// Test with unknown entry
	results, err = factory.BuildAllExtensions(ctx, config, []string{"unknown.file"})
	if err == nil {
		t.Error("Expected error for unknown entry")
	}
	if len(results) != 1 || results[0].Success {
		t.Error("Expected 1 failed result for unknown entry")
	}
}

func TestBuildAllExtensionsContextCancellation(t *testing.T) {
	factory := NewBuilderFactory()

	config := &BuildConfig{PackageDir: t.TempDir()}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := factory.BuildAllExtensions(ctx, config, []string{"pyext.yaml"})
	if err == nil {
		t.Fatal("Expected context error")
	}
	if len(results) != 1 || results[0].Success {
		t.Error("Expected a single failed result carrying the context error")
	}
}
