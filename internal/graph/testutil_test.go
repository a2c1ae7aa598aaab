package graph

import "google.golang.org/protobuf/encoding/protowire"

func appendMsg(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendStr(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func nodeDef(name, op string, inputs ...string) []byte {
	var b []byte
	b = appendStr(b, nodeName, name)
	b = appendStr(b, nodeOp, op)
	for _, in := range inputs {
		b = appendStr(b, nodeInput, in)
	}
	return b
}

// testGraphDef builds input -> softmax with producer 27.
func testGraphDef() []byte {
	var b []byte
	b = appendMsg(b, graphNode, nodeDef("input", "Placeholder"))
	b = appendMsg(b, graphNode, nodeDef("output", "Softmax", "input"))
	var versions []byte
	versions = protowire.AppendTag(versions, versionProducer, protowire.VarintType)
	versions = protowire.AppendVarint(versions, 27)
	b = appendMsg(b, graphVersions, versions)
	return b
}

func testSavedModel(tagSets ...[]string) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, 1)
	for _, tags := range tagSets {
		var info []byte
		for _, t := range tags {
			info = appendStr(info, metaInfoTags, t)
		}
		var meta []byte
		meta = appendMsg(meta, metaGraphInfo, info)
		meta = appendMsg(meta, metaGraphGraph, testGraphDef())
		b = appendMsg(b, savedModelMetaGraphs, meta)
	}
	return b
}
