package metadata_test

import (
	"fmt"
	"log"

	"github.com/pior/rets/metadata"
)

// ExampleDecode demonstrates decoding a compact table without XML.
func ExampleDecode() {
	rows, err := metadata.Decode('\t', "\tA\tB\tC\t", []string{"\t1\t2\t3\t", "\t4\t5\t6\t"})
	if err != nil {
		log.Fatal(err)
	}

	for _, row := range rows {
		fmt.Println(row["A"], row["B"], row["C"])
	}
	// Output:
	// 1 2 3
	// 4 5 6
}

// ExampleParseReply demonstrates decoding a METADATA-CLASS reply.
func ExampleParseReply() {
	body := `<RETS ReplyCode="0" ReplyText="Operation Successful">
<DELIMITER value="09"/>
<METADATA-CLASS Resource="Property" Version="1.00.000" Date="2024-01-01T00:00:00">
<COLUMNS>	ClassName	StandardName	VisibleName	TableVersion	</COLUMNS>
<DATA>	RES	ResidentialProperty	Residential	1.00.000	</DATA>
<DATA>	LND	LotsAndLand	Land	1.00.000	</DATA>
</METADATA-CLASS>
</RETS>`

	reply, err := metadata.ParseReply([]byte(body))
	if err != nil {
		log.Fatal(err)
	}
	raw, err := reply.Table(metadata.TypeClass)
	if err != nil {
		log.Fatal(err)
	}
	classes, err := metadata.ProjectClasses(raw)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(classes.Resource, classes.Names())
	// Output: Property [RES LND]
}

// Example_replyCode demonstrates how a server refusal surfaces.
func Example_replyCode() {
	_, err := metadata.ParseReply([]byte(`<RETS ReplyCode="20503" ReplyText="No Metadata Found"/>`))

	fmt.Println(metadata.IsReplyCode(err, metadata.ReplyNoMetadataFound))
	fmt.Println(err)
	// Output:
	// true
	// rets reply code 20503: No Metadata Found
}
