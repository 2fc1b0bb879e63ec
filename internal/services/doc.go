// Package services implements the business logic layer of Data Sweeper.
// It sits between the HTTP handlers (and the sweep CLI) and the dataset,
// session, exporter and chart packages, so that every caller runs the same
// flow with the same logging, metrics and events.
//
// # Flow
//
// Each uploaded file goes through:
//
//	Ingest -> Get (display) -> DropDuplicates / FillMissing -> SelectColumns
//	       -> Chart -> Convert
//
// Every step after Ingest addresses the dataset by ID. Cleaning and column
// selection persist in the session store; Chart and Convert read the current
// view and never modify it.
//
// # Errors
//
// Services return the sentinel errors of the packages they orchestrate,
// wrapped with context. Handlers map them with errors.Is:
//
//   - dataset.ErrUnsupportedFileType, dataset.ErrEmptyFile,
//     dataset.ErrMalformedFile for rejected uploads (per file, never fatal
//     for the batch)
//   - dataset.ErrUnknownColumn, dataset.ErrEmptySelection for bad selections
//   - session.ErrNotFound for unknown or expired dataset IDs
//   - chart.ErrNothingToChart when the view has no numeric column
//
// # Events
//
// Successful mutations are published through an EventPublisher, normally
// the websocket hub, as "dataset" messages.
//
// # Testing
//
// The publisher is mocked with testify/mock:
//
//	events := &MockEventPublisher{}
//	events.On("Broadcast", mock.Anything, "dataset", mock.Anything).Return()
//	svc := newTestService(t).WithEvents(events)
package services
