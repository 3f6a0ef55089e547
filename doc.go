// Package lodging implements session-based access control and the
// accommodation application workflow behind the housing portal.
//
// Sessions:
//   - Identity assertions minted by the upstream identity provider are
//     verified by provider/openid and exchanged for a server-signed session
//     credential (TokenService). Sessions are self-contained HS256 tokens,
//     valid for a fixed TTL, verifiable without shared storage so handler
//     instances scale horizontally. There is no server-side revocation list;
//     the short TTL is the accepted mitigation.
//
// Access gate:
//   - Gate is a pure decision function guarding the administrative route
//     prefix. It collapses every session failure into a login redirect so the
//     perimeter never leaks why authorization failed, and checks the persisted
//     account role on every request.
//
// Application lifecycle:
//   - Applications start pending and move exactly once to accepted or denied.
//     ApplicationStateMachine centralizes the transition graph, actor checks,
//     and the append-only communication log. Status change and decision
//     message are persisted in one transaction.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the HTTP layer and
//     the state machine to describe session and application events. Sinks run
//     best-effort (errors are logged). ActivityHub fans events out to channel
//     subscribers with an explicit subscribe/unsubscribe lifecycle.
package lodging
