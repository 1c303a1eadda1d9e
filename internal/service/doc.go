// Package service groups the application services that sit between the HTTP
// and CLI delivery layers and the domain packages.
//
// Subpackages:
//   - auth: issues and validates operator access tokens
//   - screening: runs screening sessions, persists them, and announces
//     finished screenings
//
// Services receive their stores and collaborators through constructor
// injection, apply transactional boundaries when an operation spans more
// than one read and write, and translate store and domain errors into the
// sentinels the API layer maps to status codes.
package service
