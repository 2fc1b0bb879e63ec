// Package http implements the HTTP request handlers of Data Sweeper. Handlers
// are a thin layer between the chi router and the services package: they
// parse and validate requests, call one service method, and format the
// response.
//
// # Request Flow
//
//	HTTP Request → Chi Router → Middleware → Handler → SweeperService → session.Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handler Structure
//
// Each handler follows this pattern:
//
//	func (h *DatasetHandler) SelectColumns(w http.ResponseWriter, r *http.Request) {
//	    var req SelectColumnsRequest
//	    if err := h.validator.DecodeJSON(r, &req); err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//
//	    summary, err := h.service.SelectColumns(r.Context(), id, req.Columns)
//	    if err != nil {
//	        h.errorHandler.HandleError(w, r, err)
//	        return
//	    }
//
//	    render.JSON(w, r, summary)
//	}
//
// # Error Handling
//
// All errors are written as RFC 7807 problem details by
// errors.ErrorHandler, which maps the dataset, session and chart sentinel
// errors to status codes:
//
//	{
//	    "type": "/errors/dataset/unsupported-file-type",
//	    "title": "Unsupported File Type",
//	    "status": 415,
//	    "detail": "Unsupported file type: .txt",
//	    "instance": "/api/datasets",
//	    "trace_id": "..."
//	}
//
// Multi-file uploads are the exception: each file gets its own result entry
// and the batch only fails when no file was accepted.
//
// # Testing
//
// Handlers are tested with httptest against a real SweeperService backed by
// an in-memory session store, or with a testify mock of DatasetService for
// failure paths.
package http
