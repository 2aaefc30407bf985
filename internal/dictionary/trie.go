package dictionary

// Trie stores phrase entries keyed by token sequences.
type Trie struct {
	root *trieNode
	size int
}

type trieNode struct {
	children map[string]*trieNode
	entry    *Entry
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: &trieNode{}}
}

// Insert stores e under keys, replacing any previous entry for the same sequence.
func (t *Trie) Insert(keys []string, e Entry) {
	if len(keys) == 0 {
		return
	}
	n := t.root
	for _, k := range keys {
		if n.children == nil {
			n.children = make(map[string]*trieNode)
		}
		next, ok := n.children[k]
		if !ok {
			next = &trieNode{}
			n.children[k] = next
		}
		n = next
	}
	if n.entry == nil {
		t.size++
	}
	stored := e
	n.entry = &stored
}

// LongestMatch walks keys from the start and returns the entry of the deepest
// terminal node reached, with the number of keys consumed. Zero means no match.
func (t *Trie) LongestMatch(keys []string) (Entry, int) {
	var best Entry
	bestLen := 0
	n := t.root
	for i, k := range keys {
		next, ok := n.children[k]
		if !ok {
			break
		}
		n = next
		if n.entry != nil {
			best = *n.entry
			bestLen = i + 1
		}
	}
	return best, bestLen
}

// Len returns the number of stored phrases.
func (t *Trie) Len() int {
	return t.size
}
