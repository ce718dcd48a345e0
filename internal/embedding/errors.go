package embedding

import "errors"

// ErrVectorization marks any failure to produce an embedding: provider errors,
// timeouts, malformed responses. Callers classify with errors.Is and surface
// the entity that could not be vectorized.
var ErrVectorization = errors.New("vectorization failed")
