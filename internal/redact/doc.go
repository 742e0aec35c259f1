// Package redact scrubs credential material from text before it reaches
// logs or user-facing error reports. API errors can echo request URLs and
// headers, which carry access tokens.
package redact
