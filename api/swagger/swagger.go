package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academic Insights API",
        "description": "Performance analysis, remediation suggestions, grade workflow and notifications on top of the academic API.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Session", "description": "Per-user session and settings"},
        {"name": "Performance", "description": "Averages, trend and risk per student"},
        {"name": "Suggestions", "description": "Ranked remediation exercises"},
        {"name": "Grades", "description": "Grade submission and validation"},
        {"name": "Notifications", "description": "Reconciled notification inbox"},
        {"name": "Catalog", "description": "Subjects and exercises"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "A dependency is unreachable"}
                }
            }
        },
        "/api/v1/session": {
            "post": {
                "tags": ["Session"],
                "summary": "Open a session for the authenticated user",
                "security": [{"BearerAuth": []}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Session"],
                "summary": "Close the session and drop cached data",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Closed"}}
            }
        },
        "/api/v1/session/settings": {
            "get": {
                "tags": ["Session"],
                "summary": "Current settings",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Session"],
                "summary": "Update settings",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettingsUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}/performance": {
            "get": {
                "tags": ["Performance"],
                "summary": "Summary, trend and risks for a student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK, meta.stale tells whether the snapshot is a fallback", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "428": {"description": "No open session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Upstream unavailable and no snapshot", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}/suggestions": {
            "get": {
                "tags": ["Suggestions"],
                "summary": "Ranked remediation suggestions",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "nb", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/students/{id}/report.csv": {
            "get": {
                "tags": ["Performance"],
                "summary": "Performance report as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "CSV attachment"}}
            }
        },
        "/api/v1/students/{id}/report.pdf": {
            "get": {
                "tags": ["Performance"],
                "summary": "Performance report as PDF",
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "PDF attachment"}}
            }
        },
        "/api/v1/suggestions/{id}/feedback": {
            "post": {
                "tags": ["Suggestions"],
                "summary": "Record whether a suggestion was useful",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/FeedbackRequest"}}
                ],
                "responses": {"202": {"description": "Accepted"}}
            }
        },
        "/api/v1/subjects": {
            "get": {
                "tags": ["Catalog"],
                "summary": "List subjects",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/subjects/{id}/exercises": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Exercises of a subject",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/catalog/cache": {
            "delete": {
                "tags": ["Catalog"],
                "summary": "Drop cached subjects and exercises (admin)",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Dropped"}}
            }
        },
        "/api/v1/grades": {
            "post": {
                "tags": ["Grades"],
                "summary": "Submit a grade",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GradeSubmission"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grades/bulk": {
            "post": {
                "tags": ["Grades"],
                "summary": "Submit many grades, each row accepted or rejected",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BulkGradesRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/grades/{id}/validate": {
            "post": {
                "tags": ["Grades"],
                "summary": "Validate a pending grade",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown grade", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Refresh and list notifications",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/notifications/unread": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Unread notifications only",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/api/v1/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"204": {"description": "Marked read"}}
            }
        },
        "/api/v1/notifications/read-all": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark every notification read",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "Marked read"}}
            }
        }
    },
    "definitions": {
        "SettingsUpdateRequest": {
            "type": "object",
            "properties": {
                "risk_threshold": {"type": "number"},
                "suggestion_count": {"type": "integer"},
                "theme": {"type": "string", "enum": ["light", "dark", "system"]},
                "language": {"type": "string", "enum": ["fr", "en"]},
                "suggestion_alerts": {"type": "boolean"},
                "validation_alerts": {"type": "boolean"}
            }
        },
        "FeedbackRequest": {
            "type": "object",
            "properties": {
                "useful": {"type": "boolean"}
            },
            "required": ["useful"]
        },
        "GradeSubmission": {
            "type": "object",
            "properties": {
                "student_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "value": {"type": "number", "minimum": 0, "maximum": 20},
                "evaluation_type": {"type": "string", "enum": ["exam", "homework", "lab"]},
                "date": {"type": "string", "format": "date-time"},
                "observation": {"type": "string"}
            },
            "required": ["student_id", "subject_id", "value", "date"]
        },
        "BulkGradesRequest": {
            "type": "object",
            "properties": {
                "grades": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/GradeSubmission"}
                }
            },
            "required": ["grades"]
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
