package headless

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// domBinding exposes a small subset of the DOM over a Document: enough for
// host scripts to find and patch meta tags and append style elements.
type domBinding struct {
	vm      *goja.Runtime
	doc     *Document
	objects map[*html.Node]*goja.Object
	nodes   map[*goja.Object]*html.Node
}

func newDOMBinding(vm *goja.Runtime, doc *Document) *domBinding {
	return &domBinding{
		vm:      vm,
		doc:     doc,
		objects: make(map[*html.Node]*goja.Object),
		nodes:   make(map[*goja.Object]*html.Node),
	}
}

func (b *domBinding) install() error {
	document := b.vm.NewObject()
	_ = document.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return b.first(b.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("querySelectorAll", func(call goja.FunctionCall) goja.Value {
		return b.all(b.doc.Find(call.Argument(0).String()))
	})
	_ = document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		id := call.Argument(0).String()
		return b.first(b.doc.Find("[id]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, _ := s.Attr("id")
			return v == id
		}))
	})
	_ = document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		tag := strings.ToLower(call.Argument(0).String())
		return b.element(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
	})
	_ = document.Set("head", b.first(b.doc.Find("head")))
	_ = document.Set("body", b.first(b.doc.Find("body")))
	_ = document.Set("documentElement", b.first(b.doc.Find("html")))
	_ = document.DefineAccessorProperty("title", b.vm.ToValue(func(goja.FunctionCall) goja.Value {
		return b.vm.ToValue(b.doc.Title())
	}), nil, goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = document.Set("readyState", "interactive")

	return b.vm.Set("document", document)
}

func (b *domBinding) first(sel *goquery.Selection) goja.Value {
	if sel.Length() == 0 {
		return goja.Null()
	}
	return b.element(sel.Nodes[0])
}

func (b *domBinding) all(sel *goquery.Selection) goja.Value {
	items := make([]interface{}, 0, sel.Length())
	for _, n := range sel.Nodes {
		items = append(items, b.element(n))
	}
	return b.vm.NewArray(items...)
}

// element returns the proxy for n, creating it once so identity holds.
func (b *domBinding) element(n *html.Node) goja.Value {
	if n == nil {
		return goja.Null()
	}
	if obj, ok := b.objects[n]; ok {
		return obj
	}

	obj := b.vm.NewObject()
	_ = obj.Set("tagName", strings.ToUpper(n.Data))
	_ = obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		name := strings.ToLower(call.Argument(0).String())
		for _, a := range n.Attr {
			if a.Key == name {
				return b.vm.ToValue(a.Val)
			}
		}
		return goja.Null()
	})
	_ = obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(n, strings.ToLower(call.Argument(0).String()), call.Argument(1).String())
		return goja.Undefined()
	})
	_ = obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(n, strings.ToLower(call.Argument(0).String()))
		return goja.Undefined()
	})
	_ = obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child, ok := call.Argument(0).(*goja.Object)
		if !ok {
			panic(b.vm.NewTypeError("appendChild: argument is not a node"))
		}
		node, ok := b.nodes[child]
		if !ok {
			panic(b.vm.NewTypeError("appendChild: argument is not a node"))
		}
		if node.Parent != nil {
			node.Parent.RemoveChild(node)
		}
		n.AppendChild(node)
		return child
	})
	_ = obj.Set("querySelector", func(call goja.FunctionCall) goja.Value {
		return b.first(b.doc.FindIn(n, call.Argument(0).String()))
	})
	_ = obj.DefineAccessorProperty("textContent",
		b.vm.ToValue(func(goja.FunctionCall) goja.Value {
			return b.vm.ToValue(goquery.NewDocumentFromNode(n).Text())
		}),
		b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			setText(n, call.Argument(0).String())
			return goja.Undefined()
		}),
		goja.FLAG_TRUE, goja.FLAG_TRUE)
	_ = obj.DefineAccessorProperty("id",
		b.vm.ToValue(func(goja.FunctionCall) goja.Value {
			return b.vm.ToValue(attr(n, "id"))
		}),
		b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			setAttr(n, "id", call.Argument(0).String())
			return goja.Undefined()
		}),
		goja.FLAG_TRUE, goja.FLAG_TRUE)

	b.objects[n] = obj
	b.nodes[obj] = n
	return obj
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			kept = append(kept, a)
		}
	}
	n.Attr = kept
}

func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}
