package htmlout

// viewerTemplate is the standalone viewer shell. The scene bytes are the
// compressed-PLY encoding of the table, embedded base64.
const viewerTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Splat Viewer</title>
<style>
  html, body { margin: 0; padding: 0; height: 100%; overflow: hidden; background: #000; }
  #app { width: 100%; height: 100%; }
</style>
</head>
<body>
<div id="app"></div>
<script type="module">
  const sceneData = "{{sceneData}}";
  const cameraPosition = {{cameraPosition}};
  const cameraTarget = {{cameraTarget}};

  const bytes = Uint8Array.from(atob(sceneData), (c) => c.charCodeAt(0));
  const blob = new Blob([bytes], { type: "application/octet-stream" });
  const url = URL.createObjectURL(blob);

  window.splatScene = { url, cameraPosition, cameraTarget };
</script>
</body>
</html>
`
