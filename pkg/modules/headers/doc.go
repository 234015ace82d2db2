// Package headers is a pipeline module that attaches custom response
// headers to requests matching host/path rules.
//
// Configuration:
//
//	custom_headers:
//	  - include: /*
//	    exclude: /internal/*
//	    headers:
//	      X-Frame-Options: DENY
//	  - include: example.com/downloads/*
//	    headers:
//	      Cache-Control: max-age=604800
//
// A match rule is a host, a path, or both ("example.com/sub"). A trailing
// "/*" makes it a prefix match; otherwise the path must match exactly. A
// rule applies to a request when one of its include entries matches the
// request more closely than any matching exclude entry. When several rules
// set the same header, the rule whose matching include entry is most
// specific wins: entries naming a host beat host-less entries, longer paths
// beat shorter ones, and exact matches beat prefix matches.
//
// The module never produces a response itself; it decorates the response
// headers and passes the request on.
package headers
