package breaktree

import (
	"fmt"
	"strings"
)

// Find locates the line and column containing byte offset charIdx. Column
// is the byte offset within that line's Text. charIdx must be strictly
// less than bt.Len().
func (bt *BreakTree) Find(charIdx int) (line *Line, lineIndex int, col int, err error) {
	if charIdx < 0 || charIdx >= bt.totalLen {
		return nil, 0, 0, fmt.Errorf("breaktree: find: idx %d out of range [0,%d)", charIdx, bt.totalLen)
	}

	node := bt.root
	remaining := charIdx
	offset := 0
	for {
		left := node.LSum
		if remaining < left {
			node = node.L
			continue
		}
		remaining -= left
		if remaining < len(node.Text) {
			return node, offset + node.LCount, remaining, nil
		}
		remaining -= len(node.Text)
		offset += node.LCount + 1
		node = node.R
	}
}

// fixLsums propagates a byte-length delta on node's own Text up through
// every ancestor for which node sits in the left subtree. It does not
// change LCount: no lines were added or removed, only node's own length.
func (bt *BreakTree) fixLsums(node *Line, delta int) {
	if delta == 0 {
		return
	}
	cur := node
	for cur.Parent != nil {
		p := cur.Parent
		if p.L == cur {
			p.LSum += delta
		}
		cur = p
	}
}

// InsertText splices text into the document at byte offset idx, growing the
// line found there in place, or splitting it into several lines if text
// contains newlines. It returns the (line, column) at which the insertion
// began.
func (bt *BreakTree) InsertText(idx int, text string) (startLine, startCol int, err error) {
	line, lineIdx, col, err := bt.Find(idx)
	if err != nil {
		return 0, 0, err
	}
	prefix, suffix := line.Text[:col], line.Text[col:]

	if !strings.Contains(text, "\n") {
		oldLen := len(line.Text)
		line.Text = prefix + text + suffix
		bt.fixLsums(line, len(line.Text)-oldLen)
		bt.totalLen += len(text)
		return lineIdx, col, nil
	}

	parts := strings.Split(text, "\n")
	first := parts[0]
	middle := parts[1 : len(parts)-1]
	last := parts[len(parts)-1]

	oldLen := len(line.Text)
	line.Text = prefix + first + "\n"
	bt.fixLsums(line, len(line.Text)-oldLen)

	insertBefore := line.Next
	for _, m := range middle {
		bt.InsertLine(insertBefore, m+"\n")
	}
	bt.InsertLine(insertBefore, last+suffix)

	bt.totalLen += len(text)
	return lineIdx, col, nil
}

// InsertLine adds a new line holding text immediately before node (or at
// the end of the document if node is nil), and returns it.
func (bt *BreakTree) InsertLine(node *Line, text string) *Line {
	newLine := &Line{Text: text}

	if node == nil {
		parent := bt.tail
		if parent == nil {
			bt.root = newLine
			bt.head = newLine
			bt.tail = newLine
			return newLine
		}
		parent.R = newLine
		newLine.Parent = parent
		newLine.Prev = parent
		parent.Next = newLine
		bt.tail = newLine
		bt.rebalanceAfterInsert(newLine)
		return newLine
	}

	target := node.L
	if target == nil {
		node.L = newLine
		newLine.Parent = node
	} else {
		for target.R != nil {
			target = target.R
		}
		target.R = newLine
		newLine.Parent = target
	}

	prev := node.Prev
	newLine.Prev = prev
	newLine.Next = node
	node.Prev = newLine
	if prev != nil {
		prev.Next = newLine
	} else {
		bt.head = newLine
	}

	bt.rebalanceAfterInsert(newLine)
	return newLine
}

// rebalanceAfterInsert walks from the freshly linked leaf up to the root,
// maintaining left-subtree aggregates and restoring the AA-tree level
// invariants with skew then split at each ancestor.
func (bt *BreakTree) rebalanceAfterInsert(newLine *Line) {
	cur := newLine
	for cur.Parent != nil {
		parent := cur.Parent
		if parent.L == cur {
			parent.LSum += len(newLine.Text)
			parent.LCount++
		}
		parent = bt.skew(parent)
		parent = bt.split(parent)
		cur = parent
	}
	bt.root = cur
}

// DeleteText removes nchars bytes starting at byte offset idx and returns
// them along with an editor-ready range. The range is end-inclusive on the
// line and end-exclusive on the column; when the deletion ends exactly on a
// line boundary, the end is reported as the end of the previous line rather
// than column 0 of the next one.
func (bt *BreakTree) DeleteText(idx, nchars int) (removed string, sl, sc, el, ec int, err error) {
	if nchars < 1 {
		return "", 0, 0, 0, 0, fmt.Errorf("breaktree: delete: nchars %d < 1", nchars)
	}
	if idx < 0 || idx+nchars > bt.totalLen-1 {
		return "", 0, 0, 0, 0, fmt.Errorf("breaktree: delete: range [%d,%d) would remove the ghost line", idx, idx+nchars)
	}

	startLine, sl, sc, err := bt.Find(idx)
	if err != nil {
		return "", 0, 0, 0, 0, err
	}
	endPosLine, elRaw, ecRaw, err := bt.Find(idx + nchars)
	if err != nil {
		return "", 0, 0, 0, 0, err
	}

	var trueEndLine *Line
	var trueEc int
	if ecRaw == 0 {
		trueEndLine = endPosLine.Prev
		el = elRaw - 1
		trueEc = len(trueEndLine.Text)
		ec = trueEc
	} else {
		trueEndLine = endPosLine
		el = elRaw
		ec = ecRaw
		trueEc = ecRaw
	}

	var newStartText string
	if startLine == trueEndLine {
		removed = startLine.Text[sc:trueEc]
		newStartText = startLine.Text[:sc] + startLine.Text[trueEc:]
	} else {
		var sb strings.Builder
		sb.WriteString(startLine.Text[sc:])
		node := startLine.Next
		for node != trueEndLine {
			sb.WriteString(node.Text)
			next := node.Next
			bt.DeleteLine(node)
			node = next
		}
		sb.WriteString(trueEndLine.Text[:trueEc])
		removed = sb.String()

		newStartText = startLine.Text[:sc] + trueEndLine.Text[trueEc:]
		bt.DeleteLine(trueEndLine)
	}

	// A fully-consumed start line (everything it held, including its own
	// newline, fell within the deleted range) no longer exists as a line
	// and must be removed from the tree rather than left behind empty.
	if newStartText == "" && startLine != bt.tail {
		bt.DeleteLine(startLine)
	} else {
		oldLen := len(startLine.Text)
		startLine.Text = newStartText
		bt.fixLsums(startLine, len(newStartText)-oldLen)
	}

	bt.totalLen -= nchars
	return removed, sl, sc, el, ec, nil
}

// adjustAncestorAggregates walks from 'from' up toward the root, stopping
// before stopAt (or at the root if stopAt is nil), adding deltaLen/
// deltaCount to any ancestor for which the node it came from is the left
// child.
func adjustAncestorAggregates(from, stopAt *Line, deltaLen, deltaCount int) {
	cur := from
	for cur.Parent != nil && cur.Parent != stopAt {
		p := cur.Parent
		if p.L == cur {
			p.LSum += deltaLen
			p.LCount += deltaCount
		}
		cur = p
	}
}

// DeleteLine removes node from both the tree and the line list.
func (bt *BreakTree) DeleteLine(node *Line) {
	if node.Prev != nil {
		node.Prev.Next = node.Next
	} else {
		bt.head = node.Next
	}
	if node.Next != nil {
		node.Next.Prev = node.Prev
	}

	if node.L == nil {
		parent := node.Parent
		child := node.R

		// child moves up into node's place and stays in the same subtrees,
		// so ancestors lose only node's own line.
		adjustAncestorAggregates(node, nil, -len(node.Text), -1)

		if parent == nil {
			bt.root = child
			if child != nil {
				child.Parent = nil
			}
			return
		}
		if parent.L == node {
			parent.L = child
		} else {
			parent.R = child
		}
		if child != nil {
			child.Parent = parent
		}
		bt.rebalanceAfterDelete(parent)
		return
	}

	pred := node.L
	for pred.R != nil {
		pred = pred.R
	}

	oldTargetLen := len(node.Text)
	removedLen := len(pred.Text)
	node.Text = pred.Text
	node.LSum -= removedLen
	node.LCount--

	predParent := pred.Parent
	if predParent.L == pred {
		predParent.L = nil
	} else {
		predParent.R = nil
	}
	if pred.Prev != nil {
		pred.Prev.Next = pred.Next
	}
	if pred.Next != nil {
		pred.Next.Prev = pred.Prev
	}

	adjustAncestorAggregates(pred, node, -removedLen, -1)
	adjustAncestorAggregates(node, nil, -oldTargetLen, -1)

	bt.rebalanceAfterDelete(predParent)
}

// rebalanceAfterDelete restores AA-tree level invariants from start up to
// the root, following Andersson's decrease_level/skew/split deletion
// fixup.
func (bt *BreakTree) rebalanceAfterDelete(start *Line) {
	cur := start
	for cur != nil {
		cur = bt.rebalanceNode(cur)
		parent := cur.Parent
		if parent == nil {
			bt.root = cur
			return
		}
		cur = parent
	}
}

func (bt *BreakTree) rebalanceNode(node *Line) *Line {
	shouldBe := min(levelOf(node.L), levelOf(node.R)) + 1
	if shouldBe < node.Level {
		node.Level = shouldBe
		if node.R != nil && shouldBe < node.R.Level {
			node.R.Level = shouldBe
		}
	}

	node = bt.skew(node)
	if node.R != nil {
		node.R = bt.skew(node.R)
		if node.R.R != nil {
			node.R.R = bt.skew(node.R.R)
		}
	}
	node = bt.split(node)
	if node.R != nil {
		node.R = bt.split(node.R)
	}
	return node
}
