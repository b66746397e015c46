package chip8

const (
	STACK_DEPTH = 32 // Maximum call stack depth
)

// Stack holds return addresses for subroutine calls. A fixed capacity
// array keeps overflow and underflow as explicit bounds checks.
type Stack struct {
	data  [STACK_DEPTH]uint16
	depth int
}

// Push stores a return address. Pushing a full stack drops the value;
// callers check Full() first and fault.
func (s *Stack) Push(value uint16) {
	if s.Full() {
		return
	}

	s.data[s.depth] = value
	s.depth++
}

func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.depth--
	}
	return
}

func (s *Stack) Empty() bool {
	return s.depth == 0
}

func (s *Stack) Full() bool {
	return s.depth == STACK_DEPTH
}

func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.data[s.depth-1], true
}

func (s *Stack) Depth() int {
	return s.depth
}

func (s *Stack) Reset() {
	s.depth = 0
}
