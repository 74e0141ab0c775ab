package easyyaml_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/easyyaml"
	"github.com/aretw0/easyyaml/pkg/adapters/memory"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/templates"
)

// Example edits a document through the tree view and reads it back as text.
func Example() {
	editor, err := easyyaml.New()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	doc, err := editor.Docs.Open(ctx, "config", "config.yaml", "name: demo # comment\nreplicas: 1\n")
	if err != nil {
		log.Fatal(err)
	}

	if err := doc.SwitchTo(domain.ViewTree); err != nil {
		log.Fatal(err)
	}
	t, _ := doc.Tree()
	replicas, _ := t.Lookup("replicas")
	if _, err := doc.SetScalar(replicas, "3"); err != nil {
		log.Fatal(err)
	}
	if _, err := doc.SetScalar(replicas, "three"); err != nil {
		fmt.Println("rejected:", err)
	}

	text, _ := doc.CanonicalText()
	fmt.Print(text)
	fmt.Println("dirty:", doc.IsDirty())

	// Output:
	// rejected: cannot use "three" as int
	// name: demo
	// replicas: 3
	// dirty: true
}

// ExampleEditor_NewFromTemplate opens a document from a builtin template.
func ExampleEditor_NewFromTemplate() {
	builtins := memory.NewTemplateStore()
	builtins.Seed("docker", "compose.yaml", "services:\n  web:\n    image: nginx\n")

	editor, err := easyyaml.New(easyyaml.WithTemplates(templates.New(memory.NewTemplateStore(), builtins)))
	if err != nil {
		log.Fatal(err)
	}

	doc, err := editor.NewFromTemplate(context.Background(), "docker/compose.yaml", "compose")
	if err != nil {
		log.Fatal(err)
	}
	text, _ := doc.CanonicalText()
	fmt.Print(text)
	fmt.Println(doc.Title(), doc.IsDirty())

	// Output:
	// services:
	//   web:
	//     image: nginx
	// compose false
}
