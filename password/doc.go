// Package password hashes and verifies credentials.
//
// New hashes use the configured algorithm (argon2id by default, bcrypt
// optionally). Verification dispatches on the stored hash prefix so both
// formats remain usable:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//	$2a$<cost>$<salt+hash>
//
// Policy (length, character classes) is not enforced here; the engine does
// that before hashing.
package password
