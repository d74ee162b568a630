package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Aeropoint Academy API",
        "description": "Back-office and student portal for the aviation training academy",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {"name": "Auth", "description": "Sessions and credentials"},
        {"name": "Public", "description": "Unauthenticated proof submission and enquiries"},
        {"name": "Staff Finance", "description": "Invoices, payment verification and exports"},
        {"name": "Admin", "description": "Accounts, admissions and academy setup"},
        {"name": "Student", "description": "Student portal"},
        {"name": "Instructor", "description": "Grading and attendance"},
        {"name": "Uploads", "description": "File ingestion and signed downloads"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate with email and password",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "Session issued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {
                    "200": {"description": "New token pair"},
                    "401": {"description": "Expired or revoked token"}
                }
            }
        },
        "/public/payments/proof": {
            "post": {
                "tags": ["Public"],
                "summary": "Submit a payment proof by email",
                "responses": {
                    "200": {"description": "Proof attached to the oldest unpaid fee"},
                    "404": {"description": "No unpaid fee for that email"}
                }
            }
        },
        "/public/enquiries": {
            "post": {
                "tags": ["Public"],
                "summary": "Submit a prospective student enquiry",
                "responses": {
                    "201": {"description": "Enquiry recorded"}
                }
            }
        },
        "/staff/finance/fees": {
            "get": {
                "tags": ["Staff Finance"],
                "summary": "List fees",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "student_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Paginated fees", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Staff Finance"],
                "summary": "Create an invoice",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Invoice created"}
                }
            }
        },
        "/staff/finance/fees/{id}/approve": {
            "post": {
                "tags": ["Staff Finance"],
                "summary": "Verify a payment",
                "description": "Recomputes fee status, promotes enrollment past the seat deposit threshold and credits bundle purchases exactly once",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Updated fee"},
                    "404": {"description": "Unknown fee"}
                }
            }
        },
        "/staff/finance/fees/{id}/reject": {
            "post": {
                "tags": ["Staff Finance"],
                "summary": "Reject a submitted proof",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Fee returned to unpaid"},
                    "409": {"description": "Fee is not awaiting verification"}
                }
            }
        },
        "/staff/finance/dashboard": {
            "get": {
                "tags": ["Staff Finance"],
                "summary": "Finance summary per currency",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Cached dashboard"}
                }
            }
        },
        "/staff/finance/ledger/export": {
            "get": {
                "tags": ["Staff Finance"],
                "summary": "Export the fee ledger as CSV",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "CSV attachment"}
                }
            }
        },
        "/staff/admissions/{id}/review": {
            "post": {
                "tags": ["Admin"],
                "summary": "Decide an admissions application",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Decision recorded"},
                    "409": {"description": "Application already decided"}
                }
            }
        },
        "/admin/users": {
            "get": {
                "tags": ["Admin"],
                "summary": "List accounts",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "Paginated accounts"}
                }
            },
            "post": {
                "tags": ["Admin"],
                "summary": "Create an account",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Account created"},
                    "409": {"description": "Email already registered"}
                }
            }
        },
        "/student/wallet/topup": {
            "post": {
                "tags": ["Student"],
                "summary": "Buy an exam credit bundle",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "201": {"description": "Bundle invoice created"}
                }
            }
        },
        "/student/exam-pools/{id}/join": {
            "post": {
                "tags": ["Student"],
                "summary": "Book a seat in an exam pool",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Seat reserved"},
                    "409": {"description": "Pool full or already joined"},
                    "412": {"description": "Insufficient credits"}
                }
            }
        },
        "/instructor/courses/{id}/grades": {
            "post": {
                "tags": ["Instructor"],
                "summary": "Submit a batch of grades",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Created and skipped counts"}
                }
            }
        },
        "/instructor/courses/{id}/attendance": {
            "post": {
                "tags": ["Instructor"],
                "summary": "Record an attendance sheet",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Sheet upserted"},
                    "403": {"description": "Instructor not assigned to course"}
                }
            }
        },
        "/uploads/{endpoint}": {
            "post": {
                "tags": ["Uploads"],
                "summary": "Upload a file",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "endpoint", "in": "path", "required": true, "type": "string", "enum": ["paymentProof", "adminStudentPhoto", "applicationDocument"]},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Stored file with signed URL"},
                    "403": {"description": "Endpoint not allowed for caller"}
                }
            }
        },
        "/uploads/files/{token}": {
            "get": {
                "tags": ["Uploads"],
                "summary": "Download a file by signed token",
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File stream"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_items": {"type": "integer"},
                "total_pages": {"type": "integer"}
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
