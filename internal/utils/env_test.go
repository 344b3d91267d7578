package utils

import (
	"testing"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("ANNOTATION_TEST_STR", "value")
	if got := GetEnv("ANNOTATION_TEST_STR", "fallback", nil); got != "value" {
		t.Fatalf("GetEnv: want=value got=%s", got)
	}
	if got := GetEnv("ANNOTATION_TEST_MISSING", "fallback", nil); got != "fallback" {
		t.Fatalf("GetEnv default: want=fallback got=%s", got)
	}
}

func TestGetEnvAsInt(t *testing.T) {
	t.Setenv("ANNOTATION_TEST_INT", "15")
	if got := GetEnvAsInt("ANNOTATION_TEST_INT", 3, nil); got != 15 {
		t.Fatalf("GetEnvAsInt: want=15 got=%d", got)
	}
	t.Setenv("ANNOTATION_TEST_INT", "not a number")
	if got := GetEnvAsInt("ANNOTATION_TEST_INT", 3, nil); got != 3 {
		t.Fatalf("GetEnvAsInt fallback: want=3 got=%d", got)
	}
}

func TestGetEnvAsInt64(t *testing.T) {
	t.Setenv("ANNOTATION_TEST_INT64", "42")
	if got := GetEnvAsInt64("ANNOTATION_TEST_INT64", 7, nil); got != 42 {
		t.Fatalf("GetEnvAsInt64: want=42 got=%d", got)
	}
	if got := GetEnvAsInt64("ANNOTATION_TEST_INT64_MISSING", 7, nil); got != 7 {
		t.Fatalf("GetEnvAsInt64 default: want=7 got=%d", got)
	}
}
