// Package chat contains the IRC-over-WebSocket transport and the chat
// message parser.
//
// The transport performs the full session handshake: the caller's login is
// resolved from the access token before any socket is opened, credentials go
// out as PASS/NICK lines, and the server's welcome acknowledgment is polled
// with a bounded retry before the tags capability is requested and channels
// are joined. Keep-alive PING lines are answered in place; a failed-login
// notice or socket error tears the session down and reports "disconnected"
// exactly once.
//
// Parsing is line-oriented. Control lines never reach the parser; everything
// else is handed to Parse, which accepts tag-prefixed PRIVMSG lines and
// produces an immutable Message. The speakable form of a message is derived
// lazily: emote-only and command messages are suppressed, emote spans are
// excised by tag offsets, URL-like and over-long tokens are dropped, and the
// speech rule tables are applied last.
package chat
