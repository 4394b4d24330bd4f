package routing

import "errors"

var (
	// ErrNoRoute is returned when no rule matches the attributes. This is
	// an expected per-evaluation outcome, not a bug; the forwarder must
	// translate it into a protocol-appropriate rejection.
	ErrNoRoute = errors.New("no rule matches the request attributes")

	// ErrEmptyRoute is returned when a matched rule carries no weighted
	// cluster list to select from.
	ErrEmptyRoute = errors.New("matched rule has no clusters to select from")

	// ErrWeightSum is returned when the weights of a rule's clusters do
	// not sum to 100. This indicates unvalidated configuration reached the
	// selector; the evaluation fails fast rather than renormalizing.
	ErrWeightSum = errors.New("cluster weights do not sum to 100")

	// ErrNilAttributes is returned when Decide is called without request
	// attributes.
	ErrNilAttributes = errors.New("request attributes must not be nil")

	// ErrNilSnapshot is returned when Decide is called without a
	// configuration snapshot.
	ErrNilSnapshot = errors.New("configuration snapshot must not be nil")
)
