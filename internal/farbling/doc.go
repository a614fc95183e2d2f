// Package farbling implements the session-scoped perturbation engine that
// browser call sites consult before exposing identifying runtime data.
//
// A browsing context derives a seed from its effective site and the secret of
// its browsing session. The SessionCache built from that seed hands out
// deterministic strings and generators, and the policy functions in this
// package use them to transform collections, numeric samples, core counts and
// pixel data at one of three levels. Two reads in the same context agree;
// reads in different sites or sessions do not.
package farbling
