// Package services holds the business logic.
//
// Services defined in this package:
//   - EntitlementStore: per-student unlocked videos, kept in step with the student directory
//   - StudentService: student accounts, cascading deletes to entitlements
//   - AuthService: login and the caller's profile
//   - CatalogService: lesson catalog, video links and playback checks
//   - StatusService: key/value backend health
package services
