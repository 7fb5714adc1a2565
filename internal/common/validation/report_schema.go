package validation

// ReportDataSchema describes the analysis JSON accepted from the hosted model
// or the remote analysis service. Scalar values may arrive as strings or
// numbers; anything structural must have the right shape.
const ReportDataSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "definitions": {
    "scalar": {"type": ["string", "number", "boolean", "null"]},
    "stringList": {"type": "array", "items": {"type": "string"}},
    "input": {
      "type": "object",
      "required": ["parameter"],
      "properties": {
        "parameter": {"type": "string"},
        "value": {"$ref": "#/definitions/scalar"},
        "unit": {"type": ["string", "null"]},
        "description": {"type": ["string", "null"]}
      }
    }
  },
  "properties": {
    "reportTitle": {"type": "string"},
    "calculationType": {"$ref": "#/definitions/stringList"},
    "executiveSummary": {
      "type": "object",
      "properties": {
        "keyResult": {"$ref": "#/definitions/scalar"},
        "quickFacts": {"$ref": "#/definitions/stringList"},
        "bottomLine": {"type": "string"}
      }
    },
    "inputs": {"type": "array", "items": {"$ref": "#/definitions/input"}},
    "methodology": {
      "type": "object",
      "properties": {
        "formula": {"type": "string"},
        "assumptions": {"$ref": "#/definitions/stringList"},
        "limitations": {"$ref": "#/definitions/stringList"}
      }
    },
    "results": {
      "type": "object",
      "properties": {
        "primary": {
          "type": "object",
          "properties": {
            "value": {"$ref": "#/definitions/scalar"},
            "description": {"type": ["string", "null"]}
          }
        },
        "breakdown": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["label"],
            "properties": {
              "label": {"type": "string"},
              "value": {"$ref": "#/definitions/scalar"},
              "percentage": {"$ref": "#/definitions/scalar"}
            }
          }
        }
      }
    },
    "scenarios": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string"},
          "inputs": {"type": "array", "items": {"$ref": "#/definitions/input"}},
          "result": {"$ref": "#/definitions/scalar"},
          "analysis": {"type": ["string", "null"]},
          "userQuestion": {"type": ["string", "null"]}
        }
      }
    },
    "visualizations": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type", "data"],
        "properties": {
          "type": {"enum": ["line", "bar", "pie", "doughnut"]},
          "title": {"type": "string"},
          "data": {
            "type": "object",
            "required": ["labels", "values"],
            "properties": {
              "labels": {"type": "array", "items": {"type": ["string", "number"]}},
              "values": {"type": "array", "items": {"type": "number"}},
              "format": {"enum": ["currency", "percent", "number"]}
            }
          }
        }
      }
    },
    "insights": {"$ref": "#/definitions/stringList"},
    "recommendations": {"$ref": "#/definitions/stringList"}
  }
}`

var reportDataSchema = MustCompile(ReportDataSchema)

// ValidateReportData checks raw analysis JSON against ReportDataSchema.
func ValidateReportData(doc []byte) *ValidationResult {
	return reportDataSchema.ValidateJSON(doc)
}
