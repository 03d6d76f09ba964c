// Package jwtauth provides pluggable credential and JWT token lifecycle
// management for host web applications that bring their own database handle.
//
// Token lifecycle:
//   - Engine owns issuance, validation, refresh rotation, and revocation.
//     A user has at most one Active token record at any time; issuing a new
//     pair expires every prior Active record inside the same transaction.
//   - Refresh tokens are single use. A successful refresh consumes the old
//     record before the replacement pair is inserted, so a concurrent retry
//     with the same refresh token observes an invalid-refresh failure.
//   - Expiry is lazy: a refresh record past its expiry is corrected to
//     Expired the moment it is next touched, and the caller gets the same
//     invalid-refresh failure either way.
//
// Stores:
//   - Users and Tokens are Bun-backed repositories constructed with an
//     already-open *bun.DB. There is no package-level registry; the host
//     wires RepositoryManager, Engine, and Authenticator explicitly.
//   - Settings holds the operator-configured token TTLs and the set of
//     claim keys every issued access token must carry. SeedDefaults installs
//     the initial rows idempotently.
//
// The Authenticator facade exposes the operations hosts embed: Login,
// Refresh, ValidateAccessToken, Logout, and the user management commands.
package jwtauth
