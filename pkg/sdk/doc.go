// Package askinvoice provides an embedded client for the invoice knowledge
// base. It wires the same ingestion and answering pipeline the HTTP server
// uses, so documents can be ingested and questions asked in-process without
// running a server.
package askinvoice
