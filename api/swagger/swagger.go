package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Academy Scheduler API",
        "description": "Scheduling engine for tutoring academies: class assignment, conflict resolution, optimization and make-up suggestions.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Scheduling", "description": "Student to class assignment and timetable export"},
        {"name": "MakeUp", "description": "Replacement classes for postponed sessions"},
        {"name": "Configuration", "description": "Runtime engine configuration"}
    ],
    "paths": {
        "/scheduling/requests": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Schedule students into classes",
                "parameters": [
                    {"name": "commit", "in": "query", "type": "boolean"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Commit conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/requests/async": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Queue a scheduling request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/requests/{id}": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Get a scheduling result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/requests/{id}/commit": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Persist a completed scheduling result",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Commit conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/requests/{id}/export": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Export a timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"}
                ],
                "responses": {
                    "200": {"description": "Timetable document", "schema": {"type": "file"}}
                }
            }
        },
        "/scheduling/optimize": {
            "post": {
                "tags": ["Scheduling"],
                "summary": "Optimize a set of scheduling decisions",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/OptimizeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/health": {
            "get": {
                "tags": ["Scheduling"],
                "summary": "Scheduling engine health",
                "responses": {
                    "200": {"description": "Healthy or degraded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Unhealthy", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/config": {
            "get": {
                "tags": ["Configuration"],
                "summary": "Get the active engine configuration",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Configuration"],
                "summary": "Update the engine configuration",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Rejected configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scheduling/config/history": {
            "get": {
                "tags": ["Configuration"],
                "summary": "List superseded engine configurations",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer", "default": 20}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/makeup/suggestions": {
            "post": {
                "tags": ["MakeUp"],
                "summary": "Suggest make-up classes for a postponed class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MakeUpRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Postponed class not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "TimeSlotInput": {
            "type": "object",
            "properties": {
                "startTime": {"type": "string", "format": "date-time"},
                "endTime": {"type": "string", "format": "date-time"},
                "location": {"type": "string"},
                "maxCapacity": {"type": "integer"}
            }
        },
        "ScheduleRequest": {
            "type": "object",
            "required": ["studentIds", "courseId"],
            "properties": {
                "id": {"type": "string"},
                "type": {"type": "string", "enum": ["auto_schedule", "reschedule", "conflict_resolution", "optimization", "content_sync", "manual_override"]},
                "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "courseId": {"type": "string"},
                "preferredTimeSlots": {"type": "array", "items": {"$ref": "#/definitions/TimeSlotInput"}},
                "constraints": {"type": "object"}
            }
        },
        "OptimizeRequest": {
            "type": "object",
            "required": ["decisions"],
            "properties": {
                "decisions": {"type": "array", "items": {"type": "object"}},
                "constraints": {"type": "object"}
            }
        },
        "MakeUpRequest": {
            "type": "object",
            "required": ["studentId", "postponedClassId"],
            "properties": {
                "studentId": {"type": "string"},
                "postponedClassId": {"type": "string"},
                "windowStart": {"type": "string", "format": "date-time"},
                "windowEnd": {"type": "string", "format": "date-time"},
                "excludedClassIds": {"type": "array", "items": {"type": "string"}},
                "excludedTeacherIds": {"type": "array", "items": {"type": "string"}},
                "preferences": {"type": "object"},
                "maxSuggestions": {"type": "integer"}
            }
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
