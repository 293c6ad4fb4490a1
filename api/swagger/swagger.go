package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Scan Repository API",
        "description": "Digitized archival repository: scans, EAD finding aids and the search index behind them",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Scans", "description": "Scan records and their dense per-file sequence"},
        {"name": "Images", "description": "Image files attached to scans"},
        {"name": "EAD", "description": "EAD 2002 finding aid uploads"},
        {"name": "ArchiveFiles", "description": "Inventory number aggregates"},
        {"name": "Archives", "description": "Archive registry"},
        {"name": "Logs", "description": "Audit trail"},
        {"name": "Settings", "description": "Runtime settings"},
        {"name": "Auth", "description": "Authentication"},
        {"name": "Admin", "description": "Maintenance"}
    ],
    "paths": {
        "/scans": {
            "get": {
                "tags": ["Scans"],
                "summary": "List scans",
                "parameters": [
                    {"name": "archive_id", "in": "query", "type": "integer"},
                    {"name": "archiveFile", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Scans"],
                "summary": "Create scan",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanFields"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scans/export": {
            "get": {
                "tags": ["Scans"],
                "summary": "Export scans as CSV or PDF",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string"},
                    {"name": "archive_id", "in": "query", "type": "integer"},
                    {"name": "archiveFile", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/scans/{number}": {
            "get": {
                "tags": ["Scans"],
                "summary": "Get scan",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Scans"],
                "summary": "Update scan",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScanFields"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Scans"],
                "summary": "Delete scan",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/scans/{number}/move": {
            "put": {
                "tags": ["Scans"],
                "summary": "Reposition scan within its archive file",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MoveScanRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scans/{number}/images": {
            "get": {
                "tags": ["Images"],
                "summary": "List images of a scan",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Images"],
                "summary": "Attach image",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/scans/{number}/image": {
            "get": {
                "tags": ["Images"],
                "summary": "Download default image",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/scans/{number}/images/{imageID}/file": {
            "get": {
                "tags": ["Images"],
                "summary": "Download image original",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "imageID", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/scans/{number}/images/{imageID}/derivative": {
            "get": {
                "tags": ["Images"],
                "summary": "Download resized rendition",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "imageID", "in": "path", "required": true, "type": "integer"},
                    {"name": "size", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/scans/{number}/images/{imageID}/default": {
            "put": {
                "tags": ["Images"],
                "summary": "Mark image as default",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "imageID", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/scans/{number}/images/{imageID}": {
            "delete": {
                "tags": ["Images"],
                "summary": "Delete image",
                "parameters": [
                    {"name": "number", "in": "path", "required": true, "type": "integer"},
                    {"name": "imageID", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/ead": {
            "get": {
                "tags": ["EAD"],
                "summary": "List finding aids",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["EAD"],
                "summary": "Upload finding aid",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ead/{eadID}": {
            "get": {
                "tags": ["EAD"],
                "summary": "Get finding aid record",
                "parameters": [
                    {"name": "eadID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["EAD"],
                "summary": "Delete finding aid",
                "parameters": [
                    {"name": "eadID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/ead/{eadID}/xml": {
            "get": {
                "tags": ["EAD"],
                "summary": "Download stored EAD XML",
                "parameters": [
                    {"name": "eadID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/ead/{eadID}/status": {
            "put": {
                "tags": ["EAD"],
                "summary": "Change finding aid status",
                "parameters": [
                    {"name": "eadID", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/components": {
            "get": {
                "tags": ["EAD"],
                "summary": "Search finding aid components",
                "parameters": [
                    {"name": "ead_id", "in": "query", "type": "string"},
                    {"name": "archive_id", "in": "query", "type": "integer"},
                    {"name": "file", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ead/{eadID}/tree": {
            "get": {
                "tags": ["EAD"],
                "summary": "Pruned component tree of a finding aid",
                "parameters": [
                    {"name": "eadID", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archivefiles": {
            "get": {
                "tags": ["ArchiveFiles"],
                "summary": "List archive file aggregates",
                "parameters": [
                    {"name": "archive_id", "in": "query", "type": "integer"},
                    {"name": "status", "in": "query", "type": "integer"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archivefiles/{archiveID}/{file}": {
            "get": {
                "tags": ["ArchiveFiles"],
                "summary": "Get archive file aggregate",
                "parameters": [
                    {"name": "archiveID", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["ArchiveFiles"],
                "summary": "Delete the explicit record of an unreferenced archive file",
                "parameters": [
                    {"name": "archiveID", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "412": {"description": "Still referenced by ead files or scans"}
                }
            }
        },
        "/archivefiles/{archiveID}/{file}/status": {
            "put": {
                "tags": ["ArchiveFiles"],
                "summary": "Change archive file status",
                "parameters": [
                    {"name": "archiveID", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archivefiles/{archiveID}/{file}/scans": {
            "get": {
                "tags": ["ArchiveFiles"],
                "summary": "List scans of an archive file",
                "parameters": [
                    {"name": "archiveID", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/pagebrowser/pagelist/{archiveID}/{file}": {
            "get": {
                "tags": ["ArchiveFiles"],
                "summary": "Pagelist XML for the page renderer",
                "parameters": [
                    {"name": "archiveID", "in": "path", "required": true, "type": "integer"},
                    {"name": "file", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "XML pagelist"}
                }
            }
        },
        "/archives": {
            "get": {
                "tags": ["Archives"],
                "summary": "List archives",
                "parameters": [
                    {"name": "country_code", "in": "query", "type": "string"},
                    {"name": "institution", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Archives"],
                "summary": "Register archive",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateArchiveRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/archives/{id}": {
            "get": {
                "tags": ["Archives"],
                "summary": "Get archive",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Archives"],
                "summary": "Update archive descriptions",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateArchiveRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Archives"],
                "summary": "Delete unused archive",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "integer"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/logs": {
            "get": {
                "tags": ["Logs"],
                "summary": "Search audit log",
                "parameters": [
                    {"name": "user", "in": "query", "type": "string"},
                    {"name": "object_type", "in": "query", "type": "string"},
                    {"name": "object_id", "in": "query", "type": "string"},
                    {"name": "message", "in": "query", "type": "string"},
                    {"name": "from", "in": "query", "type": "string"},
                    {"name": "to", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings": {
            "get": {
                "tags": ["Settings"],
                "summary": "List runtime settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings/{key}": {
            "put": {
                "tags": ["Settings"],
                "summary": "Create or replace setting",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SettingRequest"}}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            },
            "delete": {
                "tags": ["Settings"],
                "summary": "Delete setting",
                "parameters": [
                    {"name": "key", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Describe authenticated user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/admin/reindex": {
            "post": {
                "tags": ["Admin"],
                "summary": "Rebuild the search index",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Scan": {
            "type": "object",
            "properties": {
                "number": {"type": "integer"},
                "archive_id": {"type": "integer"},
                "archiveFile": {"type": "string"},
                "sequenceNumber": {"type": "integer"},
                "status": {"type": "integer"},
                "date": {"type": "string"},
                "timeFrameFrom": {"type": "string"},
                "timeFrameTo": {"type": "string"},
                "folioNumber": {"type": "string"},
                "originalFolioNumber": {"type": "string"},
                "title": {"type": "string"},
                "language": {"type": "string"},
                "metadata": {"type": "object"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "ScanFields": {
            "type": "object",
            "properties": {
                "archive_id": {"type": "integer"},
                "archiveFile": {"type": "string"},
                "status": {"type": "integer"},
                "date": {"type": "string"},
                "timeFrameFrom": {"type": "string"},
                "timeFrameTo": {"type": "string"},
                "folioNumber": {"type": "string"},
                "originalFolioNumber": {"type": "string"},
                "title": {"type": "string"},
                "language": {"type": "string"},
                "metadata": {"type": "object"}
            }
        },
        "MoveScanRequest": {
            "type": "object",
            "properties": {
                "after": {"type": "integer"}
            },
            "required": ["after"]
        },
        "UpdateStatusRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "integer"}
            },
            "required": ["status"]
        },
        "CreateArchiveRequest": {
            "type": "object",
            "properties": {
                "country_code": {"type": "string"},
                "institution": {"type": "string"},
                "institution_description": {"type": "string"},
                "archive": {"type": "string"},
                "archive_description": {"type": "string"}
            },
            "required": ["country_code", "institution", "archive"]
        },
        "UpdateArchiveRequest": {
            "type": "object",
            "properties": {
                "institution_description": {"type": "string"},
                "archive_description": {"type": "string"}
            }
        },
        "SettingRequest": {
            "type": "object",
            "properties": {
                "value": {"type": "string"}
            }
        },
        "LoginRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["username", "password"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
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
