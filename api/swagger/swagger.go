package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "KMSSA Attendance Register API",
        "description": "QR-driven attendance register for Kali Madhya Secondary School",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scan", "description": "QR scan ingestion"},
        {"name": "Attendance", "description": "Attendance ledger operations"},
        {"name": "Dashboard", "description": "Daily attendance summary"},
        {"name": "Students", "description": "Student roster lookups"},
        {"name": "Exports", "description": "Attendance export jobs"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/api/v1/scan": {
            "post": {
                "tags": ["Scan"],
                "summary": "Ingest a QR scan and mark the student present",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Marked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Class not allowed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already marked today", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/scan/queue": {
            "post": {
                "tags": ["Scan"],
                "summary": "Queue a QR scan on the serialized feed",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List attendance records, newest first",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Attendance"],
                "summary": "Mark a roster student manually",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualMarkRequest"}}
                ],
                "responses": {
                    "201": {"description": "Marked", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already marked today", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Attendance"],
                "summary": "Delete all records for a date",
                "parameters": [
                    {"name": "date", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/recent": {
            "get": {
                "tags": ["Attendance"],
                "summary": "List the most recent records",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/{timestamp}": {
            "patch": {
                "tags": ["Attendance"],
                "summary": "Update the status of a record",
                "parameters": [
                    {"name": "timestamp", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/StatusUpdateRequest"}}
                ],
                "responses": {
                    "200": {"description": "Updated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Record not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "No change", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/attendance/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download filtered records as CSV",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "date", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "CSV file"},
                    "404": {"description": "No records to export", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports": {
            "post": {
                "tags": ["Exports"],
                "summary": "Queue an asynchronous export job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/{id}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Get export job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/exports/download/{token}": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a finished export by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Export file"},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/dashboard/summary": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Daily attendance summary with rates",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}": {
            "get": {
                "tags": ["Students"],
                "summary": "Look up a roster student",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/students/{id}/qr": {
            "get": {
                "tags": ["Students"],
                "summary": "Render the student's QR badge as PNG",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "PNG image"},
                    "404": {"description": "Student not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScanRequest": {
            "type": "object",
            "properties": {
                "payload": {"type": "string"}
            },
            "required": ["payload"]
        },
        "ManualMarkRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "status": {"type": "string", "enum": ["Present", "Absent"]}
            },
            "required": ["studentId", "status"]
        },
        "StatusUpdateRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["Present", "Absent"]}
            },
            "required": ["status"]
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "search": {"type": "string"},
                "date": {"type": "string"},
                "status": {"type": "string"}
            },
            "required": ["format"]
        },
        "AttendanceRecord": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "name": {"type": "string"},
                "class": {"type": "string"},
                "roll": {"type": "integer"},
                "date": {"type": "string"},
                "time": {"type": "string"},
                "status": {"type": "string"},
                "timestamp": {"type": "string"}
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
