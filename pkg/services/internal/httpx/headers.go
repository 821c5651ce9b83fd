package httpx

// Headers is a plain header map with a fluent builder on top.
type Headers map[string]string

// HeaderValueSetter finishes a header entry started with Set.
type HeaderValueSetter interface {
	Value(value string) Headers
	IfNotEmpty(value string) Headers
	OrDefault(value string, defaultValue string) Headers
}

// NewHeaders starts an empty header set.
func NewHeaders() Headers {
	return make(Headers)
}

// All exposes the built map in the form resty expects.
func (h Headers) All() map[string]string {
	return h
}

// AcceptJSON sets the Accept header to application/json.
func (h Headers) AcceptJSON() Headers {
	return h.Set("Accept").Value("application/json")
}

// ContentTypeJSON sets the Content-Type header to application/json.
func (h Headers) ContentTypeJSON() Headers {
	return h.Set("Content-Type").Value("application/json")
}

// Authorization starts an Authorization header entry.
func (h Headers) Authorization() HeaderValueSetter {
	return h.Set("Authorization")
}

// UserAgent starts a User-Agent header entry.
func (h Headers) UserAgent() HeaderValueSetter {
	return h.Set("User-Agent")
}

// Set starts an arbitrary header entry.
func (h Headers) Set(key string) HeaderValueSetter {
	return &headersSetter{key: key, headers: h}
}

type headersSetter struct {
	key     string
	headers Headers
}

func (s *headersSetter) Value(value string) Headers {
	s.headers[s.key] = value
	return s.headers
}

func (s *headersSetter) IfNotEmpty(value string) Headers {
	if value != "" {
		s.headers[s.key] = value
	}
	return s.headers
}

func (s *headersSetter) OrDefault(value string, defaultValue string) Headers {
	if value == "" {
		value = defaultValue
	}
	s.headers[s.key] = value
	return s.headers
}
