package breaktree

import "fmt"

// Validate walks the whole tree checking the structural invariants: level
// rules, left-subtree aggregate correctness, parent/child consistency, and
// that the tree's in-order sequence matches the linked list. It is meant
// for use in tests, not on any hot path.
func (bt *BreakTree) Validate() error {
	count, sum, err := bt.validateNode(bt.root, nil)
	if err != nil {
		return err
	}
	if sum != bt.totalLen {
		return fmt.Errorf("breaktree: total byte length %d does not match tree sum %d", bt.totalLen, sum)
	}

	listCount := 0
	var prev *Line
	for l := bt.head; l != nil; l = l.Next {
		if l.Prev != prev {
			return fmt.Errorf("breaktree: linked list prev pointer broken at %q", l.Text)
		}
		prev = l
		listCount++
	}
	if prev != bt.tail {
		return fmt.Errorf("breaktree: tail pointer does not match list end")
	}
	if listCount != count {
		return fmt.Errorf("breaktree: list has %d lines, tree has %d", listCount, count)
	}

	l := bt.head
	var stack []*Line
	for n := bt.root; n != nil || len(stack) > 0; n = n.R {
		for ; n != nil; n = n.L {
			stack = append(stack, n)
		}
		n = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n != l {
			return fmt.Errorf("breaktree: in-order tree sequence diverges from linked list at %q", n.Text)
		}
		l = l.Next
	}
	return nil
}

func (bt *BreakTree) validateNode(n, parent *Line) (count int, sum int, err error) {
	if n == nil {
		return 0, 0, nil
	}
	if n.Parent != parent {
		return 0, 0, fmt.Errorf("breaktree: parent pointer mismatch at %q", n.Text)
	}

	if n.L == nil && n.Level != 0 {
		return 0, 0, fmt.Errorf("breaktree: node %q with nil left child has level %d, want 0", n.Text, n.Level)
	}
	if n.R == nil && n.Level != 0 {
		return 0, 0, fmt.Errorf("breaktree: node %q with nil right child has level %d, want 0", n.Text, n.Level)
	}
	if n.L != nil && n.L.Level != n.Level-1 {
		return 0, 0, fmt.Errorf("breaktree: node %q level %d, left child level %d, want %d", n.Text, n.Level, n.L.Level, n.Level-1)
	}
	if n.R != nil && (n.R.Level != n.Level && n.R.Level != n.Level-1) {
		return 0, 0, fmt.Errorf("breaktree: node %q level %d, right child level %d, want %d or %d", n.Text, n.Level, n.R.Level, n.Level, n.Level-1)
	}
	if n.R != nil && n.R.R != nil && n.R.R.Level == n.Level {
		return 0, 0, fmt.Errorf("breaktree: node %q has a double right-horizontal link at level %d", n.Text, n.Level)
	}

	lCount, lSum, err := bt.validateNode(n.L, n)
	if err != nil {
		return 0, 0, err
	}
	if lCount != n.LCount {
		return 0, 0, fmt.Errorf("breaktree: node %q LCount %d, actual left subtree count %d", n.Text, n.LCount, lCount)
	}
	if lSum != n.LSum {
		return 0, 0, fmt.Errorf("breaktree: node %q LSum %d, actual left subtree sum %d", n.Text, n.LSum, lSum)
	}

	rCount, rSum, err := bt.validateNode(n.R, n)
	if err != nil {
		return 0, 0, err
	}

	return lCount + rCount + 1, lSum + rSum + len(n.Text), nil
}
