// Package bpath canonicalizes kernel paths: resolving "." and ".." path
// components and collapsing repeated slashes without touching the
// filesystem. fd.Cwd_t.Canonicalpath calls this to turn a cwd-relative path
// into the absolute, dot-free form the vfs package expects.
package bpath

import "ustr"

// Canonicalize resolves "." and ".." components in an absolute path and
// collapses repeated '/'. p must already be absolute (fd.Cwd_t.Fullpath
// guarantees this before calling in).
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	comps := split(p)
	out := make([]ustr.Ustr, 0, len(comps))
	for _, c := range comps {
		switch {
		case c.Isdot() || len(c) == 0:
			continue
		case c.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, c)
		}
	}
	return join(out)
}

// split breaks p on '/' into non-empty components.
func split(p ustr.Ustr) []ustr.Ustr {
	var comps []ustr.Ustr
	start := 0
	for i := 0; i <= len(p); i++ {
		if i == len(p) || p[i] == '/' {
			if i > start {
				comps = append(comps, p[start:i])
			}
			start = i + 1
		}
	}
	return comps
}

// join reassembles path components into an absolute Ustr.
func join(comps []ustr.Ustr) ustr.Ustr {
	if len(comps) == 0 {
		return ustr.MkUstrRoot()
	}
	out := ustr.MkUstr()
	for _, c := range comps {
		out = out.Extend(c)
	}
	return out
}
