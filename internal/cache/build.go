package cache

// Compiler is what a cached build needs from the compiler.
type Compiler interface {
	Fingerprint(entry string) (string, error)
	Compile(entry string) (string, error)
}

// Result is the outcome of a cached build.
type Result struct {
	Asm    string
	Digest string
	Cached bool
}

// Compile returns the stored artifact when the fingerprint of entry is
// known, otherwise compiles and stores it. A nil Cache always compiles.
func (c *Cache) Compile(comp Compiler, entry string) (Result, error) {
	digest, err := comp.Fingerprint(entry)
	if err != nil {
		return Result{}, err
	}
	if c != nil {
		b, ok, err := c.Lookup(digest)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return Result{Asm: b.Asm, Digest: digest, Cached: true}, nil
		}
	}

	asm, err := comp.Compile(entry)
	if err != nil {
		return Result{}, err
	}
	if c != nil {
		if _, err := c.Store(entry, digest, asm); err != nil {
			return Result{}, err
		}
	}
	return Result{Asm: asm, Digest: digest}, nil
}
