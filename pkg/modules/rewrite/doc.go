// Package rewrite is a pipeline module that rewrites request URIs or
// answers with redirects, driven by an ordered set of rules.
//
// Configuration:
//
//	rewrite_rules:
//	  - from: /images/*
//	    from_regex: "\\.png$"
//	    to: /static/img/${tail}
//	  - from: /old.txt
//	    to: /new.txt?${query}
//	    type: permanent
//
// from matches an exact path, or a path prefix when it ends in "/*". When
// several rules could apply, the closest match wins: longer paths beat
// shorter ones and exact matches beat prefix matches on the same path.
// from_regex and query_regex restrict matches further; a leading "!"
// negates a regular expression. The to target may interpolate ${tail} (the
// part matched by "*"), ${query} (the original query string, which is
// otherwise dropped), and ${http_<header>} (a request header, with
// underscores standing in for dashes).
//
// A rule's type is "internal" (default, rewrites the URI for the rest of
// the pipeline and continues), "redirect" (307), or "permanent" (308).
package rewrite
