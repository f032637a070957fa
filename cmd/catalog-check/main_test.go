package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCatalog(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func baseCatalog(species string) map[string]string {
	return map[string]string{
		"species/Eni.json": species,
		"techs.json":       `[]`,
		"researches.json":  `[]`,
		"colonies.json":    `[{"name":"Rock","converters":["➪g"],"feature":{"type":"Colony","properties":{"climate":"Jungle"}}}]`,
	}
}

const healthySpecies = `{"name":"Eni","start_resource":{"items":{"Food":2},"factories":["Eni_Mill"]},
	"factories":[{"name":"Eni_Mill","converters":["g➪w"],"feature":{"type":"Normal"}}]}`

const danglingSpecies = `{"name":"Eni","start_resource":{"items":{"Food":2},"factories":["Eni_Mill","Eni_Gone"]},
	"factories":[{"name":"Eni_Mill","converters":["g➪w"],"feature":{"type":"Normal"}}]}`

func TestEmbeddedCatalogPasses(t *testing.T) {
	t.Setenv("TRADECORE_CONFIG", "")
	t.Setenv("TRADECORE_CATALOG_DIR", "")
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d\nstdout: %s\nstderr: %s", code, stdout.String(), stderr.String())
	}
	if !strings.Contains(stdout.String(), "Catalog validation passed.") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "source=embedded") {
		t.Fatalf("expected structured summary, got %q", stderr.String())
	}
}

func TestDanglingReferenceFails(t *testing.T) {
	dir := writeCatalog(t, baseCatalog(danglingSpecies))
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-dir", dir}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(stdout.String(), `starting factory "Eni_Gone" is not defined`) {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Catalog validation failed.") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestStrictFailsOnWarnings(t *testing.T) {
	dir := writeCatalog(t, baseCatalog(healthySpecies))
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-dir", dir}, &stdout, &stderr); code != 0 {
		t.Fatalf("expected warnings to pass, got %d: %s", code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "warning: Rock: colony has no upgraded side") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	stdout.Reset()
	if code := cli([]string{"-dir", dir, "-strict"}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected strict failure, got %d", code)
	}
}

func TestCatalogDirFromEnvironment(t *testing.T) {
	dir := writeCatalog(t, baseCatalog(danglingSpecies))
	t.Setenv("TRADECORE_CONFIG", "")
	t.Setenv("TRADECORE_CATALOG_DIR", dir)
	var stdout, stderr bytes.Buffer
	if code := cli(nil, &stdout, &stderr); code != 1 {
		t.Fatalf("expected env catalog to fail, got %d", code)
	}
}

func TestLoadAndFlagErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := cli([]string{"-dir", filepath.Join(t.TempDir(), "missing")}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected load failure, got %d", code)
	}
	if !strings.Contains(stderr.String(), "load catalog") {
		t.Fatalf("stderr = %q", stderr.String())
	}
	if code := cli([]string{"-nope"}, &stdout, &stderr); code != 2 {
		t.Fatalf("expected flag error 2, got %d", code)
	}
	if code := cli([]string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, &stdout, &stderr); code != 1 {
		t.Fatalf("expected config failure, got %d", code)
	}
}

func TestMainUsesExitFunc(t *testing.T) {
	t.Setenv("TRADECORE_CONFIG", "")
	t.Setenv("TRADECORE_CATALOG_DIR", "")
	var codes []int
	old, oldArgs := exitFunc, os.Args
	exitFunc = func(code int) { codes = append(codes, code) }
	defer func() { exitFunc, os.Args = old, oldArgs }()

	os.Args = []string{"catalog-check"}
	main()
	os.Args = []string{"catalog-check", "-dir", filepath.Join(t.TempDir(), "missing")}
	main()
	if len(codes) != 2 || codes[0] != 0 || codes[1] != 1 {
		t.Fatalf("exit codes = %v", codes)
	}
}
