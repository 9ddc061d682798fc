package debugui

const uiHeader = `
<html>
	<head>
	<style>
		table {
			border-collapse: collapse;
			width: 100%;
		}
		th, td {
			border: 1px solid black;
			padding: 8px;
			text-align: left;
		}
		th {
			background-color: black;
			color: white;
		}
		.status {
			margin-bottom: 1rem;
		}
	</style>
		<title>frameagentd</title>
	</head>
	<body>
`

const uiFooter = `
	</body>
</html>
`

const indexView = `
		<div class="status">
			<p>total_cores={{ .LockState.TotalCores }} locked_cores={{ .LockState.LockedCores }}
			   nimby_on={{ .LockState.NimbyOn }} pending_action={{ .LockState.PendingAction }}</p>
		</div>
		<table>
			<tr>
				<th>Frame ID</th>
				<th>PID</th>
				<th>State</th>
				<th>Resource</th>
				<th>Cores</th>
			</tr>
			{{range .Frames}}
			<tr>
				<td><a href="/frame/{{ .FrameID }}">{{ .FrameID }}</a></td>
				<td>{{ .PID }}</td>
				<td>{{ .State }}</td>
				<td>{{ .ResourceID }}</td>
				<td>{{ .NumCores }}</td>
			</tr>
			{{end}}
		</table>
`

const detailView = `
		<div class="buttons">
			<a href="/">All Frames</a>
		</div>
		<table>
			<tr>
				<th>Field</th>
				<th>Value</th>
			</tr>
			{{range .}}
			<tr>
				<td>{{ .Field }}</td>
				<td>{{ .Value }}</td>
			</tr>
			{{end}}
		</table>
`

const errorView = `
		<div class="status">
			<h1>request failed</h1>
			<p>{{ . }}</p>
		</div>
`
