package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "CTOS API",
        "description": "Clinical trial document workspace: role scoped document queries, site overview, community Q&A and report exports.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {"BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}},
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Session", "description": "Navigation and active role"},
        {"name": "Documents", "description": "Trial master file and investigator site file documents"},
        {"name": "Sites", "description": "Site overview"},
        {"name": "Community", "description": "Questions and answers"},
        {"name": "Reports", "description": "Dashboard summary and exports"},
        {"name": "Admin", "description": "Account administration"},
        {"name": "Observability", "description": "Metrics"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Login",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LoginRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Refresh access token",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/RefreshTokenRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Logout",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/LogoutRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/me/navigation": {
            "get": {
                "tags": ["Session"],
                "summary": "Navigation for the active role",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/me/role": {
            "post": {
                "tags": ["Session"],
                "summary": "Switch active role",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/SwitchRoleRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List documents",
                "parameters": [
                    {"name": "scope", "in": "query", "type": "string", "required": false},
                    {"name": "tab", "in": "query", "type": "string", "required": false},
                    {"name": "site", "in": "query", "type": "string", "required": false},
                    {"name": "section", "in": "query", "type": "string", "required": false},
                    {"name": "status", "in": "query", "type": "string", "required": false},
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "mine", "in": "query", "type": "boolean", "required": false},
                    {"name": "sort", "in": "query", "type": "string", "required": false},
                    {"name": "order", "in": "query", "type": "string", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "page_size", "in": "query", "type": "integer", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Upload document",
                "parameters": [
                    {"name": "file", "in": "formData", "type": "file", "required": true},
                    {"name": "scope", "in": "formData", "type": "string", "required": true},
                    {"name": "section_id", "in": "formData", "type": "string", "required": true},
                    {"name": "site_id", "in": "formData", "type": "string", "required": false},
                    {"name": "document_name", "in": "formData", "type": "string", "required": true},
                    {"name": "document_type", "in": "formData", "type": "string", "required": false},
                    {"name": "version", "in": "formData", "type": "string", "required": true},
                    {"name": "supersedes_id", "in": "formData", "type": "string", "required": false}
                ],
                "consumes": ["multipart/form-data"],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/stats": {
            "get": {
                "tags": ["Documents"],
                "summary": "Document status counts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/completeness": {
            "get": {
                "tags": ["Documents"],
                "summary": "Completeness per scope",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/sections": {
            "get": {
                "tags": ["Documents"],
                "summary": "Document sections",
                "parameters": [
                    {"name": "scope", "in": "query", "type": "string", "required": false},
                    {"name": "all", "in": "query", "type": "boolean", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/{id}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Get document",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "delete": {
                "tags": ["Documents"],
                "summary": "Delete document",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/{id}/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Issue signed download link",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/{id}/certify": {
            "post": {
                "tags": ["Documents"],
                "summary": "Certify document",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/documents/files/{token}": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download document file",
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "produces": ["application/octet-stream"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/sites": {
            "get": {
                "tags": ["Sites"],
                "summary": "Sites overview",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "include_inactive", "in": "query", "type": "boolean", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/sites/{id}": {
            "get": {
                "tags": ["Sites"],
                "summary": "Get site",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/community/questions": {
            "get": {
                "tags": ["Community"],
                "summary": "List questions",
                "parameters": [
                    {"name": "category", "in": "query", "type": "string", "required": false},
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "sort", "in": "query", "type": "string", "required": false},
                    {"name": "mine", "in": "query", "type": "boolean", "required": false},
                    {"name": "unanswered", "in": "query", "type": "boolean", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "page_size", "in": "query", "type": "integer", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "post": {
                "tags": ["Community"],
                "summary": "Ask question",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateQuestionRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/community/questions/{id}": {
            "get": {
                "tags": ["Community"],
                "summary": "Get question with answers",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/community/questions/{id}/answers": {
            "post": {
                "tags": ["Community"],
                "summary": "Answer question",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateAnswerRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/community/questions/{id}/upvote": {
            "post": {
                "tags": ["Community"],
                "summary": "Upvote question",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/community/answers/{id}/accept": {
            "post": {
                "tags": ["Community"],
                "summary": "Accept answer",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/reports/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Reports dashboard summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/reports/exports": {
            "get": {
                "tags": ["Reports"],
                "summary": "List my export jobs",
                "parameters": [{"name": "limit", "in": "query", "type": "integer", "required": false}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "post": {
                "tags": ["Reports"],
                "summary": "Request export",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/ExportRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "202": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/reports/exports/{id}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export job status",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/export/{token}": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download export",
                "parameters": [{"name": "token", "in": "path", "type": "string", "required": true}],
                "produces": ["text/csv", "application/pdf"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List users",
                "parameters": [
                    {"name": "role", "in": "query", "type": "string", "required": false},
                    {"name": "site", "in": "query", "type": "string", "required": false},
                    {"name": "active", "in": "query", "type": "boolean", "required": false},
                    {"name": "search", "in": "query", "type": "string", "required": false},
                    {"name": "page", "in": "query", "type": "integer", "required": false},
                    {"name": "page_size", "in": "query", "type": "integer", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Create user",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/CreateUserRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/admin/users/{id}": {
            "get": {
                "tags": ["Admin"],
                "summary": "Get user",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "put": {
                "tags": ["Admin"],
                "summary": "Update user",
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/UpdateUserRequest"}
                    }
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            },
            "delete": {
                "tags": ["Admin"],
                "summary": "Deactivate user",
                "parameters": [{"name": "id", "in": "path", "type": "string", "required": true}],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/admin/audit": {
            "get": {
                "tags": ["Admin"],
                "summary": "Audit trail",
                "parameters": [
                    {"name": "resource_type", "in": "query", "type": "string", "required": false},
                    {"name": "limit", "in": "query", "type": "integer", "required": false}
                ],
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": ["Observability"],
                "summary": "Metrics summary",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"$ref": "#/responses/BadRequest"},
                    "401": {"$ref": "#/responses/Unauthenticated"},
                    "403": {"$ref": "#/responses/Forbidden"},
                    "503": {"$ref": "#/responses/Unavailable"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}},
            "required": ["email", "password"]
        },
        "RefreshTokenRequest": {"type": "object", "properties": {"refresh_token": {"type": "string"}}, "required": ["refresh_token"]},
        "LogoutRequest": {"type": "object", "properties": {"refresh_token": {"type": "string"}}, "required": ["refresh_token"]},
        "SwitchRoleRequest": {
            "type": "object",
            "properties": {"role": {"type": "string", "enum": ["sponsor", "site_monitor", "site_coordinator", "admin"]}},
            "required": ["role"]
        },
        "CreateQuestionRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "content": {"type": "string"},
                "category": {"type": "string"},
                "tags": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["title", "content", "category"]
        },
        "CreateAnswerRequest": {
            "type": "object",
            "properties": {"content": {"type": "string"}, "citations": {"type": "array", "items": {"type": "string"}}},
            "required": ["content"]
        },
        "CreateUserRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "assigned_site_id": {"type": "string"},
                "active": {"type": "boolean"},
                "password": {"type": "string"}
            },
            "required": ["email", "full_name", "role", "password"]
        },
        "UpdateUserRequest": {
            "type": "object",
            "properties": {
                "full_name": {"type": "string"},
                "role": {"type": "string"},
                "assigned_site_id": {"type": "string"},
                "active": {"type": "boolean"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}, "status": {"type": "integer"}}
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["document_inventory", "missing_documents", "site_enrollment"]},
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "filters": {"type": "object", "additionalProperties": {"type": "string"}}
            },
            "required": ["type", "format"]
        }
    },
    "responses": {
        "BadRequest": {
            "description": "Invalid filter value, pagination or payload",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        },
        "Unauthenticated": {
            "description": "Missing or invalid bearer token",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        },
        "Forbidden": {
            "description": "Active role lacks the capability",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
        },
        "Unavailable": {
            "description": "Storage unavailable, retry after the Retry-After delay",
            "schema": {"$ref": "#/definitions/ResponseEnvelope"}
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
