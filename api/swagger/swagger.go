package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Praktika API",
        "description": "Internship supervision allocation service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Authentication", "description": "Login and session info"},
        {"name": "Reference", "description": "Academic years, schools, subjects, internship types, zones"},
        {"name": "Teachers", "description": "Teacher roster, qualifications and availability"},
        {"name": "Demands", "description": "Internship demand management"},
        {"name": "Plans", "description": "Allocation plan lifecycle and the matching engine"},
        {"name": "Assignments", "description": "Teacher assignment ledger"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Authentication"],
                "summary": "Authenticate user",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Authentication"],
                "summary": "Get current user",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years": {
            "get": {
                "tags": ["Reference"],
                "summary": "List academic years",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Reference"],
                "summary": "Register academic year",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateYearRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years/{id}/lock": {
            "patch": {
                "tags": ["Reference"],
                "summary": "Lock or unlock submissions for a year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"locked": {"type": "boolean"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/academic-years/{id}/current-plan": {
            "get": {
                "tags": ["Plans"],
                "summary": "Get the current plan of a year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "No current plan"}
                }
            }
        },
        "/academic-years/{id}/credit-hours": {
            "get": {
                "tags": ["Reference"],
                "summary": "List credit-hour tracking rows of a year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List teachers",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "school_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/availabilities": {
            "get": {
                "tags": ["Teachers"],
                "summary": "List availability declarations",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "academic_year_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Teachers"],
                "summary": "Submit availability for an internship type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/SubmitAvailabilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Academic year locked"}
                }
            }
        },
        "/demands": {
            "get": {
                "tags": ["Demands"],
                "summary": "List internship demands",
                "parameters": [
                    {"name": "academic_year_id", "in": "query", "type": "string"},
                    {"name": "internship_type_id", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Demands"],
                "summary": "Create demand",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateDemandRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Academic year locked"}
                }
            }
        },
        "/plans": {
            "get": {
                "tags": ["Plans"],
                "summary": "List allocation plans",
                "parameters": [
                    {"name": "academic_year_id", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Plans"],
                "summary": "Create allocation plan",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePlanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Duplicate version"}
                }
            }
        },
        "/plans/{id}/status": {
            "patch": {
                "tags": ["Plans"],
                "summary": "Move plan to a later lifecycle status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object", "properties": {"status": {"type": "string", "enum": ["DRAFT", "IN_REVIEW", "APPROVED", "ARCHIVED"]}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Backward transition or plan archived"}
                }
            }
        },
        "/plans/{id}/current": {
            "post": {
                "tags": ["Plans"],
                "summary": "Mark plan as current for its year",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/allocate": {
            "post": {
                "tags": ["Plans"],
                "summary": "Run the allocation engine",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Allocation result", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Plan archived"}
                }
            }
        },
        "/plans/{id}/assignments": {
            "get": {
                "tags": ["Assignments"],
                "summary": "List assignments of a plan",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/plans/{id}/export": {
            "get": {
                "tags": ["Plans"],
                "summary": "Export a plan as CSV or PDF",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Rendered report"}
                }
            }
        },
        "/assignments": {
            "post": {
                "tags": ["Assignments"],
                "summary": "Create manual assignment",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssignmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Teacher already assigned for tuple"}
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
        "CreateYearRequest": {
            "type": "object",
            "required": ["name", "total_credit_hours", "elementary_school_hours", "middle_school_hours"],
            "properties": {
                "name": {"type": "string"},
                "total_credit_hours": {"type": "integer"},
                "elementary_school_hours": {"type": "integer"},
                "middle_school_hours": {"type": "integer"},
                "budget_announced_at": {"type": "string", "format": "date-time"},
                "allocation_deadline": {"type": "string", "format": "date-time"}
            }
        },
        "SubmitAvailabilityRequest": {
            "type": "object",
            "required": ["academic_year_id", "internship_type_id", "status"],
            "properties": {
                "academic_year_id": {"type": "string"},
                "internship_type_id": {"type": "string"},
                "status": {"type": "string", "enum": ["AVAILABLE", "UNAVAILABLE", "TENTATIVE"]},
                "is_available": {"type": "boolean"}
            }
        },
        "CreateDemandRequest": {
            "type": "object",
            "required": ["academic_year_id", "internship_type_id", "subject_id", "target_school_type", "required_teachers"],
            "properties": {
                "academic_year_id": {"type": "string"},
                "internship_type_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "target_school_type": {"type": "string", "enum": ["PRIMARY", "MIDDLE"]},
                "required_teachers": {"type": "integer"},
                "forecast": {"type": "boolean"}
            }
        },
        "CreatePlanRequest": {
            "type": "object",
            "required": ["academic_year_id", "name", "version"],
            "properties": {
                "academic_year_id": {"type": "string"},
                "name": {"type": "string"},
                "version": {"type": "string"},
                "is_current": {"type": "boolean"},
                "notes": {"type": "string"}
            }
        },
        "CreateAssignmentRequest": {
            "type": "object",
            "required": ["plan_id", "teacher_id", "internship_type_id", "subject_id"],
            "properties": {
                "plan_id": {"type": "string"},
                "teacher_id": {"type": "string"},
                "internship_type_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "student_group_size": {"type": "integer"}
            }
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
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"}
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
