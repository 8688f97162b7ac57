package scaffold

import (
	"os"
	"path/filepath"
)

// JSON schemas constraining structured agent output. Written once; an
// existing schema file is never overwritten so local edits survive.
const readerSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "files": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "path": {"type": "string"},
          "role": {"type": "string"},
          "public_api": {"type": "string"},
          "risks": {"type": "string"},
          "test_notes": {"type": "string"}
        },
        "required": ["path"]
      }
    }
  },
  "required": ["files"]
}`

const reviewSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "findings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "severity": {"type": "string"},
          "file": {"type": "string"},
          "rationale": {"type": "string"},
          "suggestion": {"type": "string"}
        },
        "required": ["severity", "file"]
      }
    }
  },
  "required": ["findings"]
}`

const tasksSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "tasks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "summary": {"type": "string"},
          "files": {"type": "array", "items": {"type": "string"}},
          "acceptance_criteria": {"type": "array", "items": {"type": "string"}},
          "tests": {"type": "array", "items": {"type": "string"}},
          "deps": {"type": "array", "items": {"type": "string"}}
        },
        "required": ["id", "summary"]
      }
    }
  },
  "required": ["tasks"]
}`

const selectSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "variants": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "agent": {"type": "string"},
          "coverage": {"type": "number"},
          "tests_passed": {"type": "boolean"},
          "diff_stats": {"type": "string"},
          "notes": {"type": "string"}
        },
        "required": ["agent"]
      }
    }
  },
  "required": ["variants"]
}`

// EnsureSchemas writes the output schemas into schemasDir.
func EnsureSchemas(schemasDir string) error {
	if err := os.MkdirAll(schemasDir, 0755); err != nil {
		return err
	}
	schemas := map[string]string{
		"reader.json": readerSchema,
		"review.json": reviewSchema,
		"tasks.json":  tasksSchema,
		"select.json": selectSchema,
	}
	for name, contents := range schemas {
		path := filepath.Join(schemasDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := writeFile(path, contents); err != nil {
			return err
		}
	}
	return nil
}
